// Package download streams a model binary to its destination path while a
// fixed-interval poller reports progress from the growing file's size.
// Failures are surfaced as a structured Result rather than an error so
// calling UIs can retry without special-casing exceptions; partial files are
// always cleaned up.
package download

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GarrettC14/nutrirx-llm/internal/metrics"
)

// DefaultPollInterval is how often the progress poller samples the
// destination file size.
const DefaultPollInterval = time.Second

// SizeTolerance is the accepted relative deviation between the downloaded
// file size and the catalog's expected size. The window tolerates minor
// model re-uploads without forcing a checksum on every entry.
const SizeTolerance = 0.20

// WithinTolerance reports whether actual is within SizeTolerance of expected.
func WithinTolerance(actual, expected int64) bool {
	if expected <= 0 {
		return false
	}
	diff := actual - expected
	if diff < 0 {
		diff = -diff
	}
	return float64(diff) <= float64(expected)*SizeTolerance
}

// Progress is one progress report during a download.
type Progress struct {
	BytesDownloaded int64   `json:"bytes_downloaded"`
	TotalBytes      int64   `json:"total_bytes"`
	Percentage      float64 `json:"percentage"` // capped at 99 until completion
	ETASeconds      float64 `json:"eta_seconds"`
}

// ProgressFunc receives progress reports. Called from the poller goroutine;
// implementations must be cheap.
type ProgressFunc func(Progress)

// Result is the structured outcome of one download invocation.
type Result struct {
	Success   bool   `json:"success"`
	Cancelled bool   `json:"cancelled"`
	Error     string `json:"error,omitempty"`
}

// CancelledError is the Error value of a cancelled download Result.
const CancelledError = "download cancelled"

// Downloader transfers one file at a time. Cancellation is cooperative: the
// flag is consulted by the copy loop, it does not abort the in-flight HTTP
// request preemptively.
type Downloader struct {
	client       *http.Client
	pollInterval time.Duration
	cancelled    atomic.Bool
}

// NewDownloader creates a downloader. No HTTP timeout is set; model files
// are large and transfer time is bounded by the caller's context instead.
func NewDownloader() *Downloader {
	return &Downloader{
		client:       &http.Client{Timeout: 0},
		pollInterval: DefaultPollInterval,
	}
}

// Cancel requests cooperative cancellation of the in-flight download.
func (d *Downloader) Cancel() {
	d.cancelled.Store(true)
}

// Download fetches url into dest, resuming a partial file when present.
// expectedSize drives progress percentages and the post-transfer size check;
// sha256sum is verified additionally when non-empty. The progress poller is
// always stopped before Download returns, on every path.
func (d *Downloader) Download(ctx context.Context, url, dest string, expectedSize int64, sha256sum string, onProgress ProgressFunc) Result {
	d.cancelled.Store(false)

	metrics.ActiveDownloads.Inc()
	defer metrics.ActiveDownloads.Dec()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return failure(dest, fmt.Errorf("create model directory: %w", err))
	}

	// Resume from an existing partial file.
	var offset int64
	if info, err := os.Stat(dest); err == nil {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return failure(dest, fmt.Errorf("create request: %w", err))
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return failure(dest, fmt.Errorf("download model: %w", err))
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// Server ignored the Range request; start over.
		offset = 0
	case http.StatusPartialContent:
	default:
		return failure(dest, fmt.Errorf("download failed with status %d", resp.StatusCode))
	}

	total := expectedSize
	if total <= 0 {
		total = resp.ContentLength + offset
	}

	flag := os.O_CREATE | os.O_WRONLY
	if offset > 0 {
		flag |= os.O_APPEND
	} else {
		flag |= os.O_TRUNC
	}
	file, err := os.OpenFile(dest, flag, 0o644)
	if err != nil {
		return failure(dest, fmt.Errorf("open destination: %w", err))
	}

	stopPoll := d.startPoller(dest, offset, total, onProgress)

	res := d.transfer(ctx, resp.Body, file, dest)
	stopPoll()
	if !res.Success {
		return res
	}

	// A Cancel issued while the copy loop was blocked in the final read is
	// only visible here: the read can return the remaining bytes together
	// with EOF, so the loop never re-checks the flag.
	if d.cancelled.Load() {
		_ = os.Remove(dest)
		metrics.DownloadFailures.WithLabelValues("cancelled").Inc()
		log.Info().Str("dest", dest).Msg("download cancelled, partial file removed")
		return Result{Success: false, Cancelled: true, Error: CancelledError}
	}

	if ver := verify(dest, expectedSize, sha256sum); ver != "" {
		metrics.DownloadFailures.WithLabelValues("integrity").Inc()
		_ = os.Remove(dest)
		return Result{Success: false, Error: ver}
	}

	if onProgress != nil {
		onProgress(Progress{
			BytesDownloaded: total,
			TotalBytes:      total,
			Percentage:      100,
			ETASeconds:      0,
		})
	}
	log.Info().Str("dest", dest).Int64("bytes", total).Msg("model download complete")
	return Result{Success: true}
}

// transfer copies the response body to the file, honouring cancellation and
// context between chunks. The file is closed and removed on every failure
// path before returning.
func (d *Downloader) transfer(ctx context.Context, src io.Reader, file *os.File, dest string) Result {
	buf := make([]byte, 32*1024)
	for {
		if d.cancelled.Load() {
			file.Close()
			_ = os.Remove(dest)
			metrics.DownloadFailures.WithLabelValues("cancelled").Inc()
			log.Info().Str("dest", dest).Msg("download cancelled, partial file removed")
			return Result{Success: false, Cancelled: true, Error: CancelledError}
		}
		if err := ctx.Err(); err != nil {
			file.Close()
			_ = os.Remove(dest)
			metrics.DownloadFailures.WithLabelValues("cancelled").Inc()
			return Result{Success: false, Cancelled: true, Error: CancelledError}
		}

		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				file.Close()
				_ = os.Remove(dest)
				metrics.DownloadFailures.WithLabelValues("network").Inc()
				return Result{Success: false, Error: werr.Error()}
			}
			metrics.DownloadBytes.Add(float64(n))
		}
		if err == io.EOF {
			if cerr := file.Close(); cerr != nil {
				_ = os.Remove(dest)
				return Result{Success: false, Error: cerr.Error()}
			}
			return Result{Success: true}
		}
		if err != nil {
			file.Close()
			_ = os.Remove(dest)
			// A cancelled context surfaces as a read error on the body.
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				metrics.DownloadFailures.WithLabelValues("cancelled").Inc()
				return Result{Success: false, Cancelled: true, Error: CancelledError}
			}
			metrics.DownloadFailures.WithLabelValues("network").Inc()
			return Result{Success: false, Error: err.Error()}
		}
	}
}

// startPoller launches the fixed-interval progress sampler and returns a
// function that stops it and waits for it to exit.
func (d *Downloader) startPoller(dest string, offset, total int64, onProgress ProgressFunc) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)

	start := time.Now()
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(d.pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				info, err := os.Stat(dest)
				if err != nil {
					continue
				}
				bytes := info.Size()

				var pct float64
				if total > 0 {
					pct = float64(bytes) / float64(total) * 100
				}
				if pct > 99 {
					pct = 99 // 100 is reported only after validation
				}

				var eta float64
				elapsed := time.Since(start).Seconds()
				if elapsed > 0 && bytes > offset {
					throughput := float64(bytes-offset) / elapsed
					eta = float64(total-bytes) / throughput
					if eta < 0 {
						eta = 0
					}
				}

				if onProgress != nil {
					onProgress(Progress{
						BytesDownloaded: bytes,
						TotalBytes:      total,
						Percentage:      pct,
						ETASeconds:      eta,
					})
				}
			}
		}
	}()

	return func() {
		close(stop)
		wg.Wait()
	}
}

// verify re-checks the finished file. Returns an error message, or "" when
// the file passes.
func verify(dest string, expectedSize int64, sha256sum string) string {
	info, err := os.Stat(dest)
	if err != nil {
		return fmt.Sprintf("stat downloaded file: %v", err)
	}
	if !WithinTolerance(info.Size(), expectedSize) {
		return fmt.Sprintf("integrity check failed: got %d bytes, expected %d (±%.0f%%)",
			info.Size(), expectedSize, SizeTolerance*100)
	}
	if sha256sum != "" {
		sum, err := fileSHA256(dest)
		if err != nil {
			return fmt.Sprintf("compute checksum: %v", err)
		}
		if sum != sha256sum {
			return fmt.Sprintf("integrity check failed: checksum mismatch (got %s)", sum)
		}
	}
	return ""
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// failure removes any partial file and wraps err into a Result.
func failure(dest string, err error) Result {
	_ = os.Remove(dest)
	metrics.DownloadFailures.WithLabelValues("network").Inc()
	log.Debug().Err(err).Str("dest", dest).Msg("download failed")
	return Result{Success: false, Error: err.Error()}
}
