package web

// registerRoutes binds the spec §6 route table onto the chi router. Every
// handler is a raw http.HandlerFunc — there is no OpenAPI/schema layer in
// this project's dependency stack, so routes are registered directly
// rather than through a generated operation registry.
func (s *Server) registerRoutes() {
	s.router.Get("/api/v1/devices", s.handleListDevices)
	s.router.Get("/api/v1/devices/{id}/recordings", s.handleDeviceRecordings)

	s.router.Post("/api/v1/stream/start", s.handleStreamStart)
	s.router.Get("/api/v1/stream/{sid}/segments", s.handleStreamSegments)
	s.router.Post("/api/v1/stream/{sid}/control", s.handleStreamControl)
	s.router.Delete("/api/v1/stream/{sid}", s.handleStreamStop)

	s.router.Get("/api/v1/recordings/{fid}/stream", s.handleRecordingStream)

	s.router.Get("/api/v1/latency/sessions/{sid}/statistics", s.handleSessionStatistics)
	s.router.Get("/api/v1/latency/alerts", s.handleAlertFeed)
	s.router.Get("/api/v1/latency/sessions/{sid}/alerts", s.handleSessionAlertFeed)
}
