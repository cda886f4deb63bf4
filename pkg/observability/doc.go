/*
Package observability turns reading-session lifecycle hooks into structured
logs and Prometheus metrics.

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	hooks := observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger))
	m := session.New(cat, interpreter, session.WithLifecycleHooks(hooks))
*/
package observability
