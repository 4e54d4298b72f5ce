package observability

import (
	"context"

	"github.com/honeynil/cinematch/internal/infrastructure/observability"
	"github.com/prometheus/client_golang/prometheus"
)

func Setup(serviceName, otlpEndpoint string) func(context.Context) error {
	observability.InitLogger()
	observability.InitMetrics(prometheus.DefaultRegisterer)
	return observability.InitTracing(serviceName, otlpEndpoint)
}
