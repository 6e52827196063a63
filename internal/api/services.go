package api

import (
	"github.com/librarydesk/librarydesk-server/internal/service"
)

// Services groups the business services used by the API server.
// Search may be nil when full-text search is disabled.
type Services struct {
	Catalog     *service.CatalogService
	Members     *service.MemberService
	Circulation *service.CirculationService
	Search      *service.SearchService
	Auth        *service.AuthService
}
