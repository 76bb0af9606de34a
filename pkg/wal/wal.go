package wal

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// 自己定義常用的權限常量
const (
	// rw-r--r-- (擁有者讀寫，其他人唯讀)
	FileModeReadOnly fs.FileMode = 0644

	// rwxr-xr-x 目錄使用
	FileModeDir fs.FileMode = 0755
)

// WAL 以一行一筆 JSON 的格式追加寫入
type WAL struct {
	file *os.File
	mu   sync.Mutex
}

// Open 開啟或建立一個 WAL 檔案，必要時建立目錄
// O_APPEND 每次寫入時自動跳到文件末尾
func Open(path string) (*WAL, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, FileModeDir); err != nil {
			return nil, fmt.Errorf("create wal dir: %w", err)
		}
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, FileModeReadOnly)
	if err != nil {
		return nil, err
	}
	return &WAL{file: file}, nil
}

// Append 寫入一筆資料並刷入硬碟，回傳前資料已經落地
func (w *WAL) Append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.Write(data); err != nil {
		return err
	}
	return w.file.Sync()
}

// Close 關閉檔案
func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// Replay 從頭讀取所有資料
// callback 每次只拿到一筆，避免一次將所有資料載入記憶體
//
// 檔案尾端若是寫到一半的紀錄 (程序在 Append 中途結束)，
// 會被截掉，之後的 Append 接在最後一筆完整紀錄後面
func (w *WAL) Replay(callback func(raw json.RawMessage) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	decoder := json.NewDecoder(w.file)
	var good int64
	for {
		var raw json.RawMessage
		err := decoder.Decode(&raw)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return w.file.Truncate(good)
		}
		if err != nil {
			return fmt.Errorf("wal corrupted at offset %d: %w", good, err)
		}
		if err := callback(raw); err != nil {
			return err
		}
		good = decoder.InputOffset()
	}
}
