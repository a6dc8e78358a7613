// Package ingestion turns inbound bank-webhook payments into pool entries:
// decoding the deposit account back to a transaction reference,
// classifying the payment against what was expected, and driving the
// FSM/pool-store/notification side effects that follow.
package ingestion

import (
	"errors"
	"strings"
)

// ErrMalformedAccountNumber is returned when an inbound account number
// does not carry the expected TF prefix or is too short to decode.
var ErrMalformedAccountNumber = errors.New("ingestion: malformed account number")

const virtualAccountPrefix = "TF"

// DecodeReference reverses EncodeVirtualAccount: it recovers the
// transaction reference a deposit account number was minted for.
func DecodeReference(accountNumber string) (string, error) {
	if !strings.HasPrefix(accountNumber, virtualAccountPrefix) || len(accountNumber) < 3 {
		return "", ErrMalformedAccountNumber
	}
	suffix := accountNumber[len(virtualAccountPrefix):]
	if suffix == "" {
		return "", ErrMalformedAccountNumber
	}
	return "TXN-" + suffix, nil
}

// EncodeVirtualAccount derives the deposit account number a trader is
// told to pay into for a given transaction reference.
func EncodeVirtualAccount(reference string) (string, error) {
	const refPrefix = "TXN-"
	if !strings.HasPrefix(reference, refPrefix) {
		return "", errors.New("ingestion: reference missing TXN- prefix")
	}
	suffix := reference[len(refPrefix):]
	if suffix == "" {
		return "", errors.New("ingestion: reference has empty suffix")
	}
	return virtualAccountPrefix + suffix, nil
}
