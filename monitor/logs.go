package monitor

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
)

const maxTailBytes = 1 << 20

// TailLogFile returns at most the last n lines of the file at path.
func TailLogFile(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	start := info.Size() - maxTailBytes
	if start < 0 {
		start = 0
	}
	if _, err := f.Seek(start, io.SeekStart); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	data = bytes.TrimRight(data, "\n")
	if n <= 0 {
		return data, nil
	}
	idx := len(data)
	for i := 0; i < n; i++ {
		j := bytes.LastIndexByte(data[:idx], '\n')
		if j < 0 {
			return data, nil
		}
		idx = j
	}
	return data[idx+1:], nil
}

// LogsHandler serves the tail of the application log as plain text.
// Access control is left to the router group it is mounted on.
func LogsHandler(path string) gin.HandlerFunc {
	return func(c *gin.Context) {
		lines, err := strconv.Atoi(c.DefaultQuery("lines", "500"))
		if err != nil || lines <= 0 || lines > 5000 {
			lines = 500
		}
		data, err := TailLogFile(path, lines)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Log file not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Unable to read log"})
			return
		}
		c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
	}
}
