package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	LLMRequests   prometheus.Counter
	LLMFailures   prometheus.Counter
	InputTokens   prometheus.Counter
	OutputTokens  prometheus.Counter
	GeneratedDocs prometheus.Counter
	StoreFailures prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			LLMRequests: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "fascicolo",
				Name:      "llm_requests_total",
				Help:      "Total requests sent to the LLM provider",
			}),
			LLMFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "fascicolo",
				Name:      "llm_failures_total",
				Help:      "Total LLM calls that ended in an error payload",
			}),
			InputTokens: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "fascicolo",
				Name:      "llm_input_tokens_total",
				Help:      "Total prompt tokens consumed",
			}),
			OutputTokens: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "fascicolo",
				Name:      "llm_output_tokens_total",
				Help:      "Total completion tokens consumed",
			}),
			GeneratedDocs: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "fascicolo",
				Name:      "generated_documents_total",
				Help:      "Total documents rendered into archives",
			}),
			StoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "fascicolo",
				Name:      "store_failures_total",
				Help:      "Total best-effort store operations that failed",
			}),
		}
		prometheus.MustRegister(
			global.LLMRequests, global.LLMFailures,
			global.InputTokens, global.OutputTokens,
			global.GeneratedDocs, global.StoreFailures,
		)
	})
	return global
}
