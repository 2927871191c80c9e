package api

import (
	"net/http"
	"os"

	"formflow/internal/auth"
	"formflow/internal/db"
	"formflow/internal/pubsub"
	"formflow/internal/service"
	"formflow/internal/storage"
	"formflow/internal/ws"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Dependencies struct {
	DB        *db.Pool
	Bus       *pubsub.Bus
	Hub       *ws.Hub
	Log       *zap.Logger
	JobClient service.JobClient
	Storage   storage.Storage
}

func Routes(d Dependencies) http.Handler {
	r := chi.NewRouter()

	// Add request logging middleware
	r.Use(RequestLogger(d.Log))

	// Add JWT authentication middleware (optional - allows anonymous access)
	jwtSecret := os.Getenv("JWT_SECRET")
	jwtConfig := auth.NewJWTConfig(jwtSecret)
	r.Use(jwtConfig.Middleware)

	// Org endpoints
	r.Post("/orgs", d.createOrg)
	r.Get("/orgs/{id}", d.getOrg)
	r.Post("/orgs/{id}/payment", d.setOrgPayment)

	// Form endpoints
	r.Post("/forms", d.createForm)
	r.Get("/forms", d.listForms)
	r.Get("/forms/{id}", d.getForm)
	r.Get("/forms/{id}/definition", d.getDefinition)
	r.Put("/forms/{id}/definition", d.saveDefinition)
	r.Post("/forms/{id}/publish", d.publishForm)

	// Submission endpoints
	r.Get("/forms/{id}/submissions", d.listSubmissions)
	r.Get("/submissions/{id}", d.getSubmission)
	r.Get("/submissions/{id}/attachments", d.listAttachments)
	r.Get("/attachments/{id}/download", d.downloadAttachment)

	// File endpoints
	r.Post("/files/sign", d.signFile)

	// WebSocket endpoint
	r.Get("/ws", d.wsHandler)

	return r
}

func (d Dependencies) formService() *service.FormService {
	return service.NewFormService(d.DB.Queries, newSchemaCompiler(), service.NewPlanService(d.DB.Queries), d.Bus)
}

func (d Dependencies) submissionService() *service.SubmissionService {
	svc := service.NewSubmissionService(d.DB.Queries, d.Bus)
	if d.JobClient != nil {
		svc.SetJobClient(d.JobClient)
	}
	return svc
}

func (d Dependencies) attachmentService() *service.AttachmentService {
	svc := service.NewAttachmentService(d.DB.Queries, d.Storage, d.Log)
	if d.JobClient != nil {
		svc.SetJobClient(d.JobClient)
	}
	return svc
}
