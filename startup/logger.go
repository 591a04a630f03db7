package startup

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

// CustomFormatter writes "[time] [level] [id] message key=value...".
// The id is the request id when the entry carries one.
type CustomFormatter struct{}

func (f *CustomFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	id, ok := entry.Data["request_id"]
	if !ok {
		id = fmt.Sprintf("ID-%d", entry.Time.UnixNano())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] [%s] %s",
		entry.Time.Format("2006-01-02T15:04:05Z07:00"),
		entry.Level,
		id,
		entry.Message,
	)

	keys := make([]string, 0, len(entry.Data))
	for key := range entry.Data {
		if key != "request_id" {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	for _, key := range keys {
		fmt.Fprintf(&b, " %s=%v", key, entry.Data[key])
	}
	b.WriteByte('\n')
	return []byte(b.String()), nil
}

// NewLogger builds the process logger. With a file path, output also goes to
// hourly rotated files kept for a week.
func NewLogger(level, filePath string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&CustomFormatter{})

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)

	if filePath == "" {
		logger.SetOutput(os.Stdout)
		return logger, nil
	}

	writer, err := rotatelogs.New(
		filePath+"_%Y%m%d%H%M",
		rotatelogs.WithLinkName(filePath),
		rotatelogs.WithRotationTime(time.Hour),
		rotatelogs.WithMaxAge(7*24*time.Hour),
	)
	if err != nil {
		return nil, fmt.Errorf("rotatelogs: %w", err)
	}
	logger.SetOutput(io.MultiWriter(os.Stdout, writer))
	return logger, nil
}
