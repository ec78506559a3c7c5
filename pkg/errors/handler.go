// Package errors provides error handling and recovery mechanisms for the bot.
// It implements an error counter with automatic shutdown on excessive errors.
package errors

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/Bloectasy/Valeriyya/pkg/logger"
)

// ErrorHandler manages error counting and reporting
type ErrorHandler struct {
	errorCount    atomic.Int32
	totalPanics   atomic.Int64
	webhookURL    string
	stopOnce      sync.Once
	stopChan      chan struct{}
	shutdownFunc  func()
	exitFunc      func(code int)
	maxErrors     int32
	resetInterval time.Duration
	checkInterval time.Duration
}

// ReportErrorOptions contains options for reporting an error
type ReportErrorOptions struct {
	Error   string
	Message string
}

var (
	handler *ErrorHandler
	once    sync.Once
)

// Init initializes the global error handler
func Init(webhookURL string, shutdownFunc func()) *ErrorHandler {
	once.Do(func() {
		handler = NewErrorHandler(webhookURL, shutdownFunc)
	})
	return handler
}

// Get returns the global error handler instance
func Get() *ErrorHandler {
	return handler
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(webhookURL string, shutdownFunc func()) *ErrorHandler {
	h := &ErrorHandler{
		webhookURL:    webhookURL,
		stopChan:      make(chan struct{}),
		shutdownFunc:  shutdownFunc,
		exitFunc:      os.Exit,
		maxErrors:     15,
		resetInterval: 5 * time.Second,
		checkInterval: 1 * time.Second,
	}

	h.start()
	return h
}

// start begins the error monitoring goroutines
func (h *ErrorHandler) start() {
	go func() {
		reset := time.NewTicker(h.resetInterval)
		check := time.NewTicker(h.checkInterval)
		defer reset.Stop()
		defer check.Stop()

		for {
			select {
			case <-reset.C:
				h.errorCount.Store(0)
			case <-check.C:
				if h.errorCount.Load() > h.maxErrors {
					h.shutdown()
					return
				}
			case <-h.stopChan:
				return
			}
		}
	}()
}

func (h *ErrorHandler) shutdown() {
	start := time.Now()
	logger.Warn("Too many errors in a short period", "CRITICAL")
	logger.Warn("Shutting down...", "CRITICAL")

	h.Report(ReportErrorOptions{
		Error:   "Critical Error",
		Message: "Unusual number of errors. Shutting down...",
	})

	if h.shutdownFunc != nil {
		h.shutdownFunc()
	}

	logger.Warn(fmt.Sprintf("Process finished. Total time: %v", time.Since(start)), "CRITICAL")
	h.exitFunc(1)
}

// Stop stops the error monitoring goroutines
func (h *ErrorHandler) Stop() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

// IncrementError increments the error count
func (h *ErrorHandler) IncrementError() {
	count := h.errorCount.Add(1)
	logger.Error(fmt.Sprintf("Error count: %d", count), "AntiCrash")
}

// ErrorCount returns the errors counted in the current window
func (h *ErrorHandler) ErrorCount() int32 {
	return h.errorCount.Load()
}

// TotalPanics returns every panic recovered since start
func (h *ErrorHandler) TotalPanics() int64 {
	return h.totalPanics.Load()
}

// HandlePanic handles a recovered panic
func (h *ErrorHandler) HandlePanic(recovered interface{}) {
	h.totalPanics.Add(1)
	h.IncrementError()
	logger.Debug("Unhandled panic", "AntiCrash")
	logger.Error(fmt.Sprintf("%v", recovered), "SYS")
}

// Report sends an error report to the Discord webhook
func (h *ErrorHandler) Report(data ReportErrorOptions) {
	if h.webhookURL == "" {
		return
	}

	payload := map[string]interface{}{
		"embeds": []interface{}{
			map[string]interface{}{
				"author": map[string]string{
					"name": fmt.Sprintf("Error %s", data.Error),
				},
				"description": data.Message,
				"color":       0xFF0000,
				"footer": map[string]string{
					"text": "Valeriyya",
				},
				"timestamp": time.Now().Format(time.RFC3339),
			},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to marshal error report: %v", err), "AntiCrash")
		return
	}

	req, err := http.NewRequest(http.MethodPost, h.webhookURL, bytes.NewBuffer(jsonData))
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to create webhook request: %v", err), "AntiCrash")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		logger.Error(fmt.Sprintf("Failed to send error report: %v", err), "AntiCrash")
		return
	}
	defer resp.Body.Close()

	logger.Warn(fmt.Sprintf("Sent error report to webhook, status: %d", resp.StatusCode), "AntiCrash")
}

// RecoverMiddleware returns a recovery function for use in deferred calls:
//
//	defer errors.RecoverMiddleware()()
func RecoverMiddleware() func() {
	return func() {
		if r := recover(); r != nil {
			if handler != nil {
				handler.HandlePanic(r)
			} else {
				logger.Error(fmt.Sprintf("Panic recovered (no handler): %v", r), "AntiCrash")
			}
		}
	}
}
