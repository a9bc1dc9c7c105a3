package logx

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New 创建一个文本格式的 logger；debug=true 时输出 Debug 级别。
// w 为 nil 时写 stderr。
func New(w io.Writer, debug bool) *logrus.Logger {
	if w == nil {
		w = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.InfoLevel)
	if debug {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return log
}

// Discard 返回一个丢弃全部输出的 entry，测试与未注入 logger 的调用方使用。
func Discard() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}
