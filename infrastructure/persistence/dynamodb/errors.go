package dynamodb

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// StoreError is a failed DynamoDB call, rendered with the AWS error code
type StoreError struct {
	Op      string
	Code    string
	Message string
	Err     error
}

func (e *StoreError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	se := &StoreError{Op: op, Err: err}
	var ae smithy.APIError
	if errors.As(err, &ae) {
		se.Code = ae.ErrorCode()
		se.Message = ae.ErrorMessage()
	}
	return se
}

// ErrorCode returns the AWS error code carried by err, if any
func ErrorCode(err error) string {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode()
	}
	return ""
}
