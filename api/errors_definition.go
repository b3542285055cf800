//nolint:lll
package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/cvctoken/cvct/custody"
	"github.com/cvctoken/cvct/ledger"
	"github.com/cvctoken/cvct/payroll"
	"github.com/cvctoken/cvct/storage"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400 or 404 (or even 204), whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
var (
	ErrResourceNotFound    = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody       = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrMalformedParam      = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed URL parameter")}
	ErrZeroAmount          = Error{Code: 40006, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("amount must be greater than zero")}
	ErrUnauthorized        = Error{Code: 40007, HTTPstatus: http.StatusForbidden, Err: fmt.Errorf("caller not authorized")}
	ErrAlreadyExists       = Error{Code: 40008, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("resource already exists")}
	ErrMintMismatch        = Error{Code: 40009, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("account does not belong to mint")}
	ErrInsufficientFunds   = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("insufficient funds")}
	ErrPayrollState        = Error{Code: 40011, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("payroll state does not allow the operation")}
	ErrPayrollNotDue       = Error{Code: 40012, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("no payment due yet")}
	ErrCustodyRejected     = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("custody transfer rejected")}
	ErrComputationAborted  = Error{Code: 40014, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("computation aborted")}
	ErrInvalidVault        = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("vault linkage invalid")}
	ErrInvalidAllowance    = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("allowance accounts do not match record owner")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
	ErrInvariantViolation         = Error{Code: 50003, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("ledger invariant violated")}
)

// fromDomain maps domain sentinel errors to coded API errors.
func fromDomain(err error) Error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return ErrResourceNotFound.WithErr(err)
	case errors.Is(err, ledger.ErrZeroAmount) || errors.Is(err, payroll.ErrZeroAmount):
		return ErrZeroAmount
	case errors.Is(err, ledger.ErrUnauthorized) || errors.Is(err, payroll.ErrUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, ledger.ErrMintExists) || errors.Is(err, ledger.ErrAccountExists),
		errors.Is(err, payroll.ErrOrgExists) || errors.Is(err, payroll.ErrPayrollExists),
		errors.Is(err, payroll.ErrMemberExists):
		return ErrAlreadyExists.WithErr(err)
	case errors.Is(err, ledger.ErrMintMismatch) || errors.Is(err, payroll.ErrMintMismatch):
		return ErrMintMismatch
	case errors.Is(err, ledger.ErrInvalidVault):
		return ErrInvalidVault
	case errors.Is(err, ledger.ErrInvalidAllowanceAccounts):
		return ErrInvalidAllowance
	case errors.Is(err, payroll.ErrInsufficientFunds):
		return ErrInsufficientFunds
	case errors.Is(err, payroll.ErrPayrollNotActive) || errors.Is(err, payroll.ErrMemberNotActive),
		errors.Is(err, payroll.ErrMustPauseFirst):
		return ErrPayrollState.WithErr(err)
	case errors.Is(err, payroll.ErrPayrollNotDue):
		return ErrPayrollNotDue
	case errors.Is(err, custody.ErrInsufficientBalance):
		return ErrCustodyRejected.WithErr(err)
	case errors.Is(err, ledger.ErrAbortedComputation):
		return ErrComputationAborted.WithErr(err)
	case errors.Is(err, payroll.ErrInvariantViolation):
		return ErrInvariantViolation
	default:
		return ErrGenericInternalServerError.WithErr(err)
	}
}
