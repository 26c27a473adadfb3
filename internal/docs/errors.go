package docs

import "errors"

var (
	// ErrUnauthenticated means the request carried no valid identity.
	ErrUnauthenticated = errors.New("caller is not authenticated")

	// ErrNoTenant means the caller belongs to no organization and is not a
	// superuser.
	ErrNoTenant = errors.New("caller has no organization")

	// ErrPermissionDenied means the caller's roles do not allow the operation.
	ErrPermissionDenied = errors.New("caller may not perform this operation")

	// ErrMissingPayload means a document write arrived without file content.
	ErrMissingPayload = errors.New("document payload is required")

	// ErrDocumentsInaccessible means a bulk export referenced at least one
	// document outside the caller's visible set. The export fails wholesale;
	// nothing is streamed.
	ErrDocumentsInaccessible = errors.New("one or more documents do not exist or are not accessible")
)
