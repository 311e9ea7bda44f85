package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/limbo/habitadventure/internal/service"
)

// localOwner keys the shared not-signed-in state document.
const localOwner = "local"

type Server struct {
	mx               *chi.Mux
	accountService   service.AccountServiceI
	cloudProgression service.ProgressionServiceI
	localProgression service.ProgressionServiceI
	jwtService       JWTServiceI
}

type ServicesList struct {
	AccountService   service.AccountServiceI
	CloudProgression service.ProgressionServiceI
	LocalProgression service.ProgressionServiceI
	JwtService       JWTServiceI
}

func New(servicesOptions *ServicesList) *Server {
	return &Server{
		mx:               chi.NewMux(),
		accountService:   servicesOptions.AccountService,
		cloudProgression: servicesOptions.CloudProgression,
		localProgression: servicesOptions.LocalProgression,
		jwtService:       servicesOptions.JwtService,
	}
}

// progression picks the persistence world resolved by OwnerMiddleware:
// signed-in requests get the cloud-backed service keyed by their uid,
// anonymous requests get the local one.
func (s *Server) progression(r *http.Request) (service.ProgressionServiceI, string) {
	if uid, err := GetUIDFromContext(r); err == nil {
		return s.cloudProgression, uid.String()
	}
	return s.localProgression, localOwner
}

func (s *Server) routes() {
	s.mx.Use(s.RequestIDMiddleware, s.SettingUpLoggerMiddleware)
	s.mx.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", s.Register)
		r.Post("/login", s.Login)
		r.Group(func(r chi.Router) {
			r.Use(s.OwnerMiddleware, s.LoggerExtensionMiddleware)
			r.Get("/state", s.GetState)
			r.Get("/achievements", s.GetAchievements)
			r.Get("/export", s.Export)
			r.Post("/import", s.Import)
			r.Post("/reset", s.Reset)
			r.Put("/settings/dark-mode", s.SetDarkMode)
			r.Delete("/account", s.DeleteAccount)

			r.Post("/skills", s.CreateSkill)
			r.Put("/skills/{id}", s.UpdateSkill)
			r.Delete("/skills/{id}", s.DeleteSkill)

			r.Post("/activities", s.CreateActivity)
			r.Put("/activities/{id}", s.UpdateActivity)
			r.Delete("/activities/{id}", s.DeleteActivity)
			r.Post("/activities/{id}/complete", s.CompleteActivity)
			r.Post("/activities/{id}/uncomplete", s.UncompleteActivity)

			r.Post("/quests", s.CreateQuest)
			r.Put("/quests/{id}", s.UpdateQuest)
			r.Delete("/quests/{id}", s.DeleteQuest)
			r.Post("/quests/{id}/claim", s.ClaimQuestReward)

			r.Post("/milestones", s.CreateMilestone)
			r.Delete("/milestones/{id}", s.DeleteMilestone)
			r.Post("/rewards/{id}/claim", s.ClaimReward)
		})
	})
}

func (s *Server) Run(address string) error {
	s.routes()
	return http.ListenAndServe(address, s.mx)
}
