package orderscraper

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

type Logger interface {
	Printf(format string, a ...interface{})
}

// BufferedLogger keeps messages in memory. chromedp logs from its own goroutines, hence the mutex.
type BufferedLogger struct {
	mu     sync.Mutex
	buffer bytes.Buffer
}

func (buflog *BufferedLogger) Printf(format string, a ...interface{}) {
	buflog.mu.Lock()
	defer buflog.mu.Unlock()
	fmt.Fprintf(&buflog.buffer, format, a...)
	if !strings.HasSuffix(format, "\n") {
		buflog.buffer.WriteByte('\n')
	}
}

func (buflog *BufferedLogger) String() string {
	buflog.mu.Lock()
	defer buflog.mu.Unlock()
	return buflog.buffer.String()
}

func (buflog *BufferedLogger) Flush(logger Logger) {
	buflog.mu.Lock()
	s := buflog.buffer.String()
	buflog.buffer.Reset()
	buflog.mu.Unlock()
	if s != "" {
		logger.Printf("%v", strings.TrimSuffix(s, "\n"))
	}
}

// ZapLogger routes Printf style messages into a zap logger at info level.
type ZapLogger struct {
	Sugar *zap.SugaredLogger
}

func NewZapLogger(logger *zap.Logger) ZapLogger {
	return ZapLogger{Sugar: logger.Sugar()}
}

func (logger ZapLogger) Printf(format string, a ...interface{}) {
	logger.Sugar.Infof(strings.TrimSuffix(format, "\n"), a...)
}
