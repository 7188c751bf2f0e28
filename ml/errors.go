package ml

import "errors"

var (
	ErrEmptyDataset             = errors.New("dataset is empty")
	ErrShapeMismatch            = errors.New("row does not match feature contract")
	ErrLabelMismatch            = errors.New("features and labels size mismatch")
	ErrNonBinaryLabel           = errors.New("label must be binary (0/1)")
	ErrSingleClass              = errors.New("label has a single class")
	ErrNotFitted                = errors.New("pipeline not fitted")
	ErrInsufficientClassMembers = errors.New("too few rows of a class for the requested fold count")
	ErrTooFewMinority           = errors.New("too few minority rows for oversampling")
	ErrInvalidArtifact          = errors.New("invalid artifact")
)
