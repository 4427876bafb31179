// Package handler implements the dev-only gRPC DevService (GetOTP).
package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"

	devv1 "asset-registry/backend/api/dev/v1"
	"asset-registry/backend/api/rpc"
	"asset-registry/backend/internal/devotp"
	"asset-registry/backend/internal/diag"
)

const devOTPNote = "DEV MODE ONLY"

// Server implements DevService. Only registered when dev OTP is enabled and not production.
type Server struct {
	devv1.UnimplementedDevServiceServer
	store devotp.Store
}

// NewServer returns a DevService server that reads OTP from the given store.
func NewServer(store devotp.Store) *Server {
	return &Server{store: store}
}

// GetOTP returns the plain OTP for the given challenge_id from the dev store. Returns NotFound if missing or expired.
func (s *Server) GetOTP(ctx context.Context, req *devv1.GetOTPRequest) (*devv1.GetOTPResponse, error) {
	challengeID := strings.TrimSpace(req.ChallengeID)
	if challengeID == "" {
		return nil, rpc.Error(codes.InvalidArgument, diag.InvalidInput, "challenge_id is required")
	}
	otp, ok := s.store.Get(ctx, challengeID)
	if !ok {
		return nil, rpc.Error(codes.NotFound, diag.OTPExpired, "OTP not found or expired")
	}
	return &devv1.GetOTPResponse{
		Otp:  otp,
		Note: devOTPNote,
	}, nil
}
