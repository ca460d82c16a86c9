package isa

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Manu343726/g10/pkg/utils"
)

// RegisterClass identifies one of the three register widths of the G10.
// Each class has 16 registers; index 0 of each class is the accumulator for
// ALU operations of that width.
type RegisterClass int

const (
	// 8 bit registers L0-L15
	RegL RegisterClass = iota
	// 16 bit registers W0-W15
	RegW
	// 32 bit registers D0-D15
	RegD
)

// Width returns the register width in bytes
func (c RegisterClass) Width() int {
	switch c {
	case RegL:
		return 1
	case RegW:
		return 2
	case RegD:
		return 4
	}

	panic("unreachable")
}

func (c RegisterClass) String() string {
	switch c {
	case RegL:
		return "L"
	case RegW:
		return "W"
	case RegD:
		return "D"
	}

	panic("unreachable")
}

// RegisterName returns the assembly name of a register, e.g. "d3"
func RegisterName(class RegisterClass, index int) string {
	return strings.ToLower(class.String()) + strconv.Itoa(index)
}

// ParseRegister parses a register name of the form l0..l15, w0..w15,
// d0..d15 (case insensitive)
func ParseRegister(name string) (RegisterClass, int, error) {
	if len(name) < 2 {
		return 0, 0, utils.MakeError(ErrInvalidRegister, "'%v'", name)
	}

	var class RegisterClass
	switch name[0] {
	case 'l', 'L':
		class = RegL
	case 'w', 'W':
		class = RegW
	case 'd', 'D':
		class = RegD
	default:
		return 0, 0, utils.MakeError(ErrInvalidRegister, "'%v'", name)
	}

	index, err := strconv.Atoi(name[1:])
	if err != nil || index < 0 || index > 15 {
		return 0, 0, utils.MakeError(ErrInvalidRegister, "'%v': register index must be 0..15", name)
	}

	return class, index, nil
}

// IsRegisterName reports whether a token names a G10 register
func IsRegisterName(name string) bool {
	_, _, err := ParseRegister(name)
	return err == nil
}

// Accumulator returns the accumulator name for a class, for diagnostics
func Accumulator(class RegisterClass) string {
	return fmt.Sprintf("%v0", class)
}
