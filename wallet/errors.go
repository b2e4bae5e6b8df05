package wallet

import "fmt"

// NotInitializedError reports an operation attempted before the wallet
// address was derived.
type NotInitializedError struct {
	Op string
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("%s requires a derived wallet address, call Address first", e.Op)
}
