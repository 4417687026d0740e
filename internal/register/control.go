package register

import (
	"fmt"
	"strings"
)

// controlAlphabet maps characters to their checksum values: the index of a
// character in this string is its value. This is the portal's own alphabet;
// note the absence of Q and V and that X sorts before the letters.
const controlAlphabet = "0123456789XABCDEFGHIJKLMNOPRSTUWYZ"

// controlWeights cycle over the characters of department code + sequence.
var controlWeights = [3]int{1, 3, 7}

func charValue(c rune) (int, error) {
	idx := strings.IndexRune(controlAlphabet, c)
	if idx < 0 {
		return 0, fmt.Errorf("character %q is outside the control alphabet", c)
	}
	return idx, nil
}

// ControlDigit computes the control digit for a department code and book
// sequence number. The digit is the weighted sum of the character values of
// the concatenated code and zero-padded sequence, modulo 10. It must stay
// bit-exact with the portal's own validation rule; the golden vectors in the
// tests pin it down.
func ControlDigit(department string, sequence int64) (int, error) {
	if department == "" {
		return 0, &ValidationError{ID: department, Detail: "department code is empty"}
	}
	if sequence < 0 || sequence > maxSequenceValue {
		return 0, &ValidationError{
			ID:     department,
			Detail: fmt.Sprintf("sequence %d is out of range", sequence),
		}
	}
	full := department + fmt.Sprintf("%0*d", SequenceDigits, sequence)
	sum := 0
	for i, c := range full {
		value, err := charValue(c)
		if err != nil {
			return 0, &ValidationError{ID: full, Detail: err.Error()}
		}
		sum += value * controlWeights[i%len(controlWeights)]
	}
	return sum % 10, nil
}

// maxSequenceValue is the largest number expressible in SequenceDigits digits.
const maxSequenceValue = 1e8 - 1
