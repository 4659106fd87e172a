package erp

import (
	"errors"
	"fmt"
)

// CaseLockedError reports that a disputed case is being edited by a user.
// The operation is retried with a small backoff.
type CaseLockedError struct {
	CaseID int64
	User   string
}

func (e *CaseLockedError) Error() string {
	return fmt.Sprintf("case %d is locked by user %s", e.CaseID, e.User)
}

// NotificationLockedError reports that a service notification is being
// edited by a user. The operation is retried with a small backoff.
type NotificationLockedError struct {
	NotificationID int64
	User           string
}

func (e *NotificationLockedError) Error() string {
	return fmt.Sprintf("notification %d is locked by user %s", e.NotificationID, e.User)
}

// NotificationDoesNotExistError reports that the ERP has not committed a
// freshly created notification yet. The read is retried with a backoff.
type NotificationDoesNotExistError struct {
	NotificationID int64
}

func (e *NotificationDoesNotExistError) Error() string {
	return fmt.Sprintf("notification %d does not exist", e.NotificationID)
}

// NotificationDeletedError reports that a notification is marked for
// deletion and cannot carry further cases.
type NotificationDeletedError struct {
	NotificationID int64
}

func (e *NotificationDeletedError) Error() string {
	return fmt.Sprintf("notification %d is marked for deletion", e.NotificationID)
}

// NotificationInProcessWarning reports that a notification is already in
// process. Tolerated when re-activating a notification for an added case.
type NotificationInProcessWarning struct {
	NotificationID int64
}

func (e *NotificationInProcessWarning) Error() string {
	return fmt.Sprintf("notification %d is already in process", e.NotificationID)
}

// CommunicationError reports a failed remote call.
type CommunicationError struct {
	Call    string
	Message string
}

func (e *CommunicationError) Error() string {
	return fmt.Sprintf("remote call %s failed: %s", e.Call, e.Message)
}

// retryable reports whether an error clears up on its own once the editing
// user releases the object or the ERP commits.
func retryable(err error) bool {
	var caseLocked *CaseLockedError
	var notifLocked *NotificationLockedError
	var notifMissing *NotificationDoesNotExistError
	return errors.As(err, &caseLocked) ||
		errors.As(err, &notifLocked) ||
		errors.As(err, &notifMissing)
}
