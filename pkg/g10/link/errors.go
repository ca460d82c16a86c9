package link

import "errors"

var (
	ErrNoInput          = errors.New("no input objects")
	ErrDuplicateGlobal  = errors.New("duplicate global symbol")
	ErrUnresolvedExtern = errors.New("unresolved extern symbol")
	ErrRelocRange       = errors.New("relocation target out of field range")
	ErrRelocWindow      = errors.New("relocation target outside its addressing window")
	ErrNoEntryPoint     = errors.New("no entry point: no entry flag, no 'main', no '_start'")
)
