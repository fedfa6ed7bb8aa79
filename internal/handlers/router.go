package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"

	"task-manager/internal/model"
)

// Services bundles what the HTTP layer delegates to.
type Services struct {
	Auth       AuthService
	Tasks      TaskService
	Categories CategoryService
	Users      UserService
}

// NewRouter wires every route behind CORS. origins may contain "*".
func NewRouter(svc Services, origins []string) http.Handler {
	r := gin.Default()
	r.Use(RequestID())

	auth := NewAuthHandler(svc.Auth)
	tasks := NewTaskHandler(svc.Tasks)
	categories := NewCategoryHandler(svc.Categories)
	users := NewUserHandler(svc.Users)

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	authGroup := r.Group("/auth")
	{
		authGroup.POST("/register", auth.Register)
		authGroup.POST("/login", auth.Login)
		authGroup.GET("/me", JWTAuth(svc.Auth), auth.Me)
	}

	protected := r.Group("/")
	protected.Use(JWTAuth(svc.Auth))
	{
		protected.GET("/tasks", tasks.List)
		protected.GET("/tasks/:id", tasks.Get)
		protected.PUT("/tasks/:id", tasks.UpdateStatus)
		protected.GET("/categories", categories.List)
		protected.GET("/dashboard", tasks.Dashboard)

		admin := protected.Group("/")
		admin.Use(RequireRole(model.RoleAdmin))
		{
			admin.POST("/tasks", tasks.Create)
			admin.DELETE("/tasks/:id", tasks.Delete)
			admin.POST("/categories", categories.Create)
			admin.DELETE("/categories/:id", categories.Delete)

			admin.GET("/admin/tasks", tasks.AdminList)
			admin.GET("/admin/tasks/unassigned", tasks.AdminUnassigned)
			admin.PUT("/admin/tasks/:id", tasks.AdminUpdate)
			admin.GET("/admin/users", users.List)
			admin.DELETE("/admin/users/:id", users.Delete)
			admin.GET("/admin/task-history", tasks.History)
		}
	}

	return cors.Handler(corsOptions(origins))(r)
}

func corsOptions(origins []string) cors.Options {
	var allowed []string
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed = append(allowed, o)
		}
	}
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	return cors.Options{
		AllowedOrigins: allowed,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         300,
	}
}
