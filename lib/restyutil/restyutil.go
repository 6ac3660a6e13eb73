// Package restyutil dumps full request/response exchanges to pluggable
// outputs. Scraper debugging lives and dies by being able to replay
// what a source actually sent, so the dump captures headers and bodies
// verbatim.
package restyutil

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

type InstrumentOutput interface {
	Write(id string, contents string)
}

type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput wipes and recreates the directory so every run
// starts from a clean capture set.
func NewFilesystemOutput(dir string) FilesystemOutput {
	os.RemoveAll(dir)
	err := os.MkdirAll(dir, 0777)
	if err != nil {
		panic(err)
	}
	return FilesystemOutput{directory: dir}
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id+".http"), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http capture", "id", id, "err", err)
	}
}

// DumpClient attaches the capture hooks to a client. Tracing stays the
// caller's concern; this only records exchanges.
func DumpClient(client *resty.Client, output InstrumentOutput) {
	if output == nil {
		return
	}

	var idcounter uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		id := strconv.FormatUint(atomic.AddUint64(&idcounter, 1), 10)
		output.Write(id, formatHttpMessage(res))
		slog.Debug(
			"captured exchange",
			"method", res.Request.Method,
			"url", res.Request.URL,
			"status", res.StatusCode(),
			"capture_id", id,
		)
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		slog.Debug(
			"request failed before capture",
			"method", req.Method,
			"url", req.URL,
			"err", err,
		)
	})
}
