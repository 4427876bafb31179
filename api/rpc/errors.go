package rpc

import (
	"time"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
	"google.golang.org/protobuf/types/known/durationpb"

	"asset-registry/backend/internal/diag"
)

// Error returns a status error whose ErrorInfo reason is the diagnostic code.
func Error(c codes.Code, reason diag.Code, msg string) error {
	return withDetails(c, msg, &errdetails.ErrorInfo{Reason: reason.String(), Domain: diag.Domain})
}

// RetryError is Error plus a RetryInfo telling the client how long to wait.
func RetryError(c codes.Code, reason diag.Code, msg string, after time.Duration) error {
	return withDetails(c, msg,
		&errdetails.ErrorInfo{Reason: reason.String(), Domain: diag.Domain},
		&errdetails.RetryInfo{RetryDelay: durationpb.New(after)},
	)
}

func withDetails(c codes.Code, msg string, details ...protoadapt.MessageV1) error {
	st := status.New(c, msg)
	if withInfo, err := st.WithDetails(details...); err == nil {
		st = withInfo
	}
	return st.Err()
}

// Reason extracts the diagnostic code from a status error, or "" if none is attached.
func Reason(err error) diag.Code {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == diag.Domain {
			return diag.Code(info.GetReason())
		}
	}
	return ""
}

// RetryAfter extracts the RetryInfo delay from a status error, or 0.
func RetryAfter(err error) time.Duration {
	st, ok := status.FromError(err)
	if !ok {
		return 0
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.RetryInfo); ok {
			return info.GetRetryDelay().AsDuration()
		}
	}
	return 0
}
