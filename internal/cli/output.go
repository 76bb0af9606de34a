package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc/status"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // 結帳 / 反結帳沒有提交
	ExitCommandError = 2 // 參數錯誤、連線失敗、服務回傳錯誤
)

// ExitError 帶有結束代碼的錯誤
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode 非 ExitError 一律視為 ExitCommandError
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// rpcError 把 gRPC 錯誤轉成帶狀態碼的訊息
func rpcError(action string, err error) *ExitError {
	st := status.Convert(err)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s: %s", action, st.Code(), st.Message()))
}

// Response json 格式的輸出
type Response struct {
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OutputFormatter 依 --format 輸出文字或 json
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Print text 格式時輸出 text，json 格式時輸出 data
func (f *OutputFormatter) Print(ok bool, data any, text string) error {
	if f.Format == "json" {
		resp := Response{Status: "ok", Data: data}
		if !ok {
			resp.Status = "failed"
		}
		return json.NewEncoder(f.Writer).Encode(resp)
	}
	_, err := fmt.Fprintln(f.Writer, text)
	return err
}
