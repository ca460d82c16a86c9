package isa

import "errors"

var (
	ErrUnknownMnemonic      = errors.New("unknown mnemonic")
	ErrOperandShape         = errors.New("no instruction form matches the operand shape")
	ErrAccumulatorViolation = errors.New("first operand must be the width's accumulator")
	ErrImmediateRange       = errors.New("immediate out of range")
	ErrBranchRange          = errors.New("branch target out of range")
	ErrConstantRequired     = errors.New("operand must be a constant")
	ErrInvalidRegister      = errors.New("invalid register name")
	ErrInvalidCondition     = errors.New("invalid condition code")
	ErrTruncatedInstruction = errors.New("truncated instruction")
	ErrInvalidOpcode        = errors.New("invalid instruction opcode")
)
