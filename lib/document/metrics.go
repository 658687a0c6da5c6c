package document

import (
	"sync/atomic"

	"github.com/VictoriaMetrics/metrics"
)

var openDocuments atomic.Int64

var (
	_ = metrics.NewGauge("ddoc_documents_open", func() float64 {
		return float64(openDocuments.Load())
	})
	documentSaves      = metrics.NewCounter("ddoc_document_saves_total")
	documentSaveErrors = metrics.NewCounter("ddoc_document_save_errors_total")
	lockRenewErrors    = metrics.NewCounter("ddoc_lock_renew_errors_total")
)
