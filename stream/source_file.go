package stream

import (
	"os"
)

// FileSource 将 *os.File（普通文件、管道、socket）适配为 Source。
// 探测值通过 FIONREAD 获取，不支持的平台返回 0。
type FileSource struct {
	f      *os.File
	closed closeOnce
}

// NewFileSource 创建 FileSource，Close 会关闭 f
func NewFileSource(f *os.File) *FileSource {
	return &FileSource{f: f}
}

func (s *FileSource) Read(p []byte) (int, error) {
	return s.f.Read(p)
}

func (s *FileSource) Available() (int, error) {
	return fileAvailable(s.f)
}

func (s *FileSource) Close() error {
	return s.closed.close(s.f.Close)
}
