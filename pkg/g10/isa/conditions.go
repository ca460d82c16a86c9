package isa

import (
	"strings"

	"github.com/Manu343726/g10/pkg/utils"
)

// ConditionCode is the 3 bit branch condition selector of the control
// instructions. NC (no condition) makes the branch unconditional.
type ConditionCode int

const (
	CondNC ConditionCode = iota // always
	CondZS                      // zero set
	CondZC                      // zero clear
	CondCS                      // carry set
	CondCC                      // carry clear
	CondVS                      // overflow set
	CondVC                      // overflow clear

	totalConditions
)

var conditionNames = map[ConditionCode]string{
	CondNC: "nc",
	CondZS: "zs",
	CondZC: "zc",
	CondCS: "cs",
	CondCC: "cc",
	CondVS: "vs",
	CondVC: "vc",
}

var conditionsByName = utils.InvertedMap(conditionNames)

func (c ConditionCode) String() string {
	if name, ok := conditionNames[c]; ok {
		return name
	}
	return "??"
}

// Valid reports whether the value is one of the defined condition codes
func (c ConditionCode) Valid() bool {
	return c >= CondNC && c < totalConditions
}

// ParseCondition parses a condition code mnemonic (case insensitive)
func ParseCondition(name string) (ConditionCode, error) {
	if code, ok := conditionsByName[strings.ToLower(name)]; ok {
		return code, nil
	}
	return 0, utils.MakeError(ErrInvalidCondition, "'%v'", name)
}

// IsConditionName reports whether a token names a condition code
func IsConditionName(name string) bool {
	_, ok := conditionsByName[strings.ToLower(name)]
	return ok
}
