package asm

import "errors"

var (
	ErrSyntax          = errors.New("syntax error")
	ErrNoActiveSection = errors.New("no active section, missing .org directive")
	ErrRedefinition    = errors.New("symbol redefinition")
	ErrBindingConflict = errors.New("conflicting symbol bindings")
	ErrUndefinedGlobal = errors.New("global symbol is not defined in this unit")
	ErrExternDefined   = errors.New("extern symbol is defined in this unit")
	ErrUnresolved      = errors.New("unresolved symbol")
	ErrBSSContent      = errors.New("bss sections cannot hold code or initialized data")
	ErrValueRange      = errors.New("data value out of range")
	ErrAddendRange     = errors.New("relocation addend out of range")
	ErrLayoutMismatch  = errors.New("internal error: emission pass disagrees with layout pass")
)
