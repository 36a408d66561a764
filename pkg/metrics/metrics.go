package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	DocumentsNormalized = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docnorm", Name: "documents_normalized_total", Help: "Number of raw documents run through the normalization pipeline."},
	)
	KeyPathsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docnorm", Name: "key_paths_skipped_total", Help: "Dotted keys left unexpanded, by reason."},
		[]string{"reason"},
	)
	JSONCoercionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "docnorm", Name: "json_coercion_failures_total", Help: "JSON-typed values that failed to parse and were kept verbatim."},
	)
	SubDocumentValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docnorm", Name: "subdocument_validations_total", Help: "Embedded document validations by model and outcome."},
		[]string{"model", "outcome"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docnorm", Name: "cache_lookups_total", Help: "Document cache lookups by result (hit, miss, error)."},
		[]string{"result"},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docnorm", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "docnorm", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(DocumentsNormalized)
	reg.MustRegister(KeyPathsSkipped)
	reg.MustRegister(JSONCoercionFailures)
	reg.MustRegister(SubDocumentValidations)
	reg.MustRegister(CacheLookups)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}
