package http

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	LogLevel       slog.Level
	// Gatherer serves /metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(opts RouterOptions, recordHandler RecordHandler, operationHandler OperationHandler) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(false)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "filing-tracker"),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cycles", func(r chi.Router) {
			r.Post("/", recordHandler.OpenCycle)

			r.Route("/{cycleID}", func(r chi.Router) {
				r.Post("/seed", recordHandler.SeedCycle)
				r.Get("/records", recordHandler.ListRecords)
				r.Get("/summary", recordHandler.GetSummary)

				r.Post("/extract", operationHandler.Extract)
				r.Post("/export", operationHandler.Export)
				r.Post("/upload", operationHandler.BatchUpload)
			})
		})

		r.Route("/records/{id}", func(r chi.Router) {
			r.Post("/finalize", recordHandler.Finalize)
			r.Delete("/finalize", recordHandler.RevertFinalize)
			r.Post("/filing", recordHandler.File)
			r.Delete("/filing", recordHandler.RemoveFiling)
			r.Put("/employees", recordHandler.UpdateEmployeeCount)

			r.Route("/documents", func(r chi.Router) {
				r.Delete("/", recordHandler.DeleteAllDocuments)
				r.Put("/{slot}", recordHandler.UploadDocument)
				r.Delete("/{slot}", recordHandler.DeleteDocument)
			})
		})

		r.Route("/operations", func(r chi.Router) {
			r.Get("/", operationHandler.List)

			r.Route("/{opID}", func(r chi.Router) {
				r.Get("/", operationHandler.Get)
				r.Post("/cancel", operationHandler.Cancel)
				r.Get("/events", operationHandler.Events)
				r.Get("/archive", operationHandler.Archive)
			})
		})
	})
	return r
}
