package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/domain"
	"github.com/JoeShih716/go-ledger-closing/internal/app/closing/usecase"
)

const dateLayout = "2006-01-02"

type GrpcServer struct {
	closing *usecase.ClosingUseCase
}

func NewGrpcServer(closing *usecase.ClosingUseCase) *GrpcServer {
	return &GrpcServer{
		closing: closing,
	}
}

func (s *GrpcServer) ExecuteClosing(ctx context.Context, req *ExecuteClosingRequest) (*ClosingResponse, error) {
	code := strings.TrimSpace(req.ExerciseCode)
	if code == "" {
		return nil, status.Error(codes.InvalidArgument, "exercise_code is required")
	}
	res, err := s.closing.CloseExercise(ctx, code, req.JournalClosing, req.JournalOpening)
	if err != nil {
		return nil, toStatus(err)
	}
	return toResponse(res), nil
}

func (s *GrpcServer) DeleteClosing(ctx context.Context, req *DeleteClosingRequest) (*ClosingResponse, error) {
	code := strings.TrimSpace(req.ExerciseCode)
	if code == "" {
		return nil, status.Error(codes.InvalidArgument, "exercise_code is required")
	}
	res, err := s.closing.ReopenExercise(ctx, code, req.UndoClosing, req.UndoOpening)
	if err != nil {
		return nil, toStatus(err)
	}
	return toResponse(res), nil
}

func (s *GrpcServer) GetExercise(ctx context.Context, req *GetExerciseRequest) (*ExerciseResponse, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, status.Error(codes.InvalidArgument, "code is required")
	}
	ex, err := s.closing.GetExercise(ctx, code)
	if err != nil {
		return nil, toStatus(err)
	}
	return &ExerciseResponse{
		Code:      ex.Code,
		Name:      ex.Name,
		StartDate: ex.StartDate.Format(dateLayout),
		EndDate:   ex.EndDate.Format(dateLayout),
		Status:    ex.Status.String(),
	}, nil
}

// toResponse 階段失敗回傳 Success=false (Soft Failure)，不是 gRPC error
func toResponse(res *usecase.Result) *ClosingResponse {
	resp := &ClosingResponse{
		Success:     res.OK(),
		OperationID: res.OperationID.String(),
	}
	switch {
	case res.Failure != nil:
		resp.FailedPhase = res.Failure.Phase.String()
		resp.Message = res.Failure.Error()
	case !res.OK():
		resp.Message = "transaction was not committed"
	}
	return resp
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, domain.ErrExerciseNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, domain.ErrExerciseRequired):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// LoggingInterceptor 記錄每個請求的方法、耗時與結果
func LoggingInterceptor(logger *zap.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
			zap.Stringer("code", status.Code(err)),
		}
		if err != nil {
			logger.Warn("grpc request failed", append(fields, zap.Error(err))...)
			return resp, err
		}
		logger.Info("grpc request", fields...)
		return resp, err
	}
}

var _ ClosingServiceServer = (*GrpcServer)(nil)
