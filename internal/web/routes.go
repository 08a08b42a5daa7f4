package web

import (
	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/rollcall/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	healthHandler := handlers.NewHealthHandler(s.deps.DB)
	livenessHandler := handlers.NewLivenessHandler(s.deps.Attempts, s.deps.Processor)
	recognitionHandler := handlers.NewRecognitionHandler(s.deps.Recognizer)
	attendanceHandler := handlers.NewAttendanceHandler(s.deps.Policy, s.deps.Recognizer, s.deps.Attempts, s.logger)
	trainingHandler := handlers.NewTrainingHandler(
		s.deps.Trainer, s.deps.Source, s.deps.Jobs, s.config.Modes, s.config.Recognition.Mode, s.logger)
	jobsHandler := handlers.NewJobsHandler(s.deps.Jobs)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Check)

		// Liveness attempts
		r.Post("/liveness", livenessHandler.Start)
		r.Post("/liveness/{attemptId}/frames", livenessHandler.Frame)
		r.Post("/liveness/{attemptId}/observations", livenessHandler.Observation)
		r.Post("/liveness/{attemptId}/reset", livenessHandler.Reset)
		r.Delete("/liveness/{attemptId}", livenessHandler.Delete)

		r.Route("/subjects/{subjectId}", func(r chi.Router) {
			r.Post("/recognize", recognitionHandler.Recognize)

			// Class sessions and attendance
			r.Post("/sessions", attendanceHandler.StartSession)
			r.Post("/sessions/{sessionId}/attendance", attendanceHandler.Mark)
			r.Get("/sessions/{sessionId}/attendance", attendanceHandler.List)

			// Enrollment and training
			r.Post("/students/{roll}/captures", trainingHandler.Capture)
			r.Post("/train", trainingHandler.Start)
			r.Get("/train/status", trainingHandler.Status)
			r.Get("/train/report", trainingHandler.Report)
		})

		// Training jobs
		r.Get("/jobs/{jobId}", jobsHandler.Status)
		r.Get("/jobs/{jobId}/events", jobsHandler.Events)
	})
}
