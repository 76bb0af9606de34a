package grpc

import (
	"context"
	"encoding/json"

	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// CodecName 服務使用 JSON 編碼，呼叫端需帶 grpc.CallContentSubtype(CodecName)
const CodecName = "json"

const (
	ServiceName = "closing.v1.ClosingService"

	ExecuteClosingMethod = "/" + ServiceName + "/ExecuteClosing"
	DeleteClosingMethod  = "/" + ServiceName + "/DeleteClosing"
	GetExerciseMethod    = "/" + ServiceName + "/GetExercise"
)

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// ExecuteClosingRequest 結帳請求
type ExecuteClosingRequest struct {
	ExerciseCode   string `json:"exercise_code"`
	JournalClosing int64  `json:"journal_closing,omitempty"`
	JournalOpening int64  `json:"journal_opening,omitempty"`
}

// DeleteClosingRequest 反結帳請求
type DeleteClosingRequest struct {
	ExerciseCode string `json:"exercise_code"`
	UndoClosing  bool   `json:"undo_closing"`
	UndoOpening  bool   `json:"undo_opening"`
}

// ClosingResponse Success=false 代表流程沒有提交 (Soft Failure)
type ClosingResponse struct {
	Success     bool   `json:"success"`
	OperationID string `json:"operation_id,omitempty"`
	FailedPhase string `json:"failed_phase,omitempty"`
	Message     string `json:"message,omitempty"`
}

type GetExerciseRequest struct {
	Code string `json:"code"`
}

type ExerciseResponse struct {
	Code      string `json:"code"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`
}

// ClosingServiceServer 服務端介面
type ClosingServiceServer interface {
	ExecuteClosing(ctx context.Context, req *ExecuteClosingRequest) (*ClosingResponse, error)
	DeleteClosing(ctx context.Context, req *DeleteClosingRequest) (*ClosingResponse, error)
	GetExercise(ctx context.Context, req *GetExerciseRequest) (*ExerciseResponse, error)
}

// RegisterClosingServiceServer 註冊服務
func RegisterClosingServiceServer(s grpc.ServiceRegistrar, srv ClosingServiceServer) {
	s.RegisterService(&serviceDesc, srv)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ClosingServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ExecuteClosing", Handler: executeClosingHandler},
		{MethodName: "DeleteClosing", Handler: deleteClosingHandler},
		{MethodName: "GetExercise", Handler: getExerciseHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "closing/v1/closing.proto",
}

func executeClosingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ExecuteClosingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClosingServiceServer).ExecuteClosing(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ExecuteClosingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClosingServiceServer).ExecuteClosing(ctx, req.(*ExecuteClosingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteClosingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteClosingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClosingServiceServer).DeleteClosing(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: DeleteClosingMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClosingServiceServer).DeleteClosing(ctx, req.(*DeleteClosingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getExerciseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetExerciseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClosingServiceServer).GetExercise(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetExerciseMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ClosingServiceServer).GetExercise(ctx, req.(*GetExerciseRequest))
	}
	return interceptor(ctx, in, info, handler)
}
