package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/version"
)

// VersionPath is the version endpoint path.
const VersionPath = "/version"

// VersionResponse represents the version endpoint response.
type VersionResponse struct {
	ServiceName  string `json:"service_name,omitempty"`
	GitVersion   string `json:"git_version"`
	GitCommit    string `json:"git_commit,omitempty"`
	GitBranch    string `json:"git_branch,omitempty"`
	GitTreeState string `json:"git_tree_state,omitempty"`
	BuildDate    string `json:"build_date,omitempty"`
	GoVersion    string `json:"go_version,omitempty"`
	Platform     string `json:"platform,omitempty"`
}

// RegisterVersionRoutes registers the build information endpoint.
func RegisterVersionRoutes(engine *gin.Engine) {
	engine.GET(VersionPath, func(c *gin.Context) {
		info := version.Get()
		c.JSON(http.StatusOK, VersionResponse{
			ServiceName:  info.ServiceName,
			GitVersion:   info.GitVersion,
			GitCommit:    info.GitCommit,
			GitBranch:    info.GitBranch,
			GitTreeState: info.GitTreeState,
			BuildDate:    info.BuildDate,
			GoVersion:    info.GoVersion,
			Platform:     info.Platform,
		})
	})
}
