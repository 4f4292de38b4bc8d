package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"cvbuilder/config"
	"cvbuilder/models"
	"cvbuilder/providers/crosscite"
	"cvbuilder/providers/crossref"
	"cvbuilder/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var biosketchCounter *prometheus.CounterVec
var enrichedCounter prometheus.Counter

func init() {
	biosketchCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "biosketch_documents_generated_total",
			Help: "Total number of biosketch documents generated, by output format.",
		},
		[]string{"format"},
	)
	enrichedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "publications_enriched_total",
			Help: "Total number of publications enriched from DOI metadata.",
		},
	)
	prometheus.MustRegister(biosketchCounter, enrichedCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// userIdentityMiddleware requires a caller identity on every CV route. Each
// record is scoped to this identity; no handler ever reads another user's
// rows.
func userIdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Missing user identity"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to CV database.")

	// Auto-Migration
	logging.Info("Running database auto-migration...")
	db.AutoMigrate(
		&models.Education{},
		&models.ProfessionalExperience{},
		&models.Publication{},
		&models.Award{},
		&models.PersonalStatement{},
		&models.Biosketch{},
	)

	// Setup Services
	metadata := services.NewMetadataService(
		crossref.NewFetcher(cfg, logging),
		crosscite.NewFetcher(cfg, logging),
		logging,
	)
	assembler := services.NewAssembler(metadata, logging)
	renderer, err := services.NewRenderer(cfg.TemplatePath)
	if err != nil {
		logging.Fatal("Template validation failed", zap.Error(err))
	}
	compiler := services.NewCompiler(cfg, logging)
	biosketchService := services.NewBiosketchService(db, assembler, renderer, compiler, logging)
	backfillService := services.NewBackfillService(cfg, db, metadata, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Setup Routes
	cv := router.Group("/cv")
	cv.Use(userIdentityMiddleware())
	setupEducationRoutes(cv, db, logging)
	setupExperienceRoutes(cv, db, logging)
	setupPublicationRoutes(cv, db, metadata, logging)
	setupAwardRoutes(cv, db, logging)
	setupPersonalStatementRoutes(cv, db, logging)
	setupBiosketchRoutes(cv, db, biosketchService, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.BackfillCronSchedule, func() {
		logging.Info("Running scheduled metadata backfill...")
		count, err := backfillService.Run(context.Background())
		if err != nil {
			logging.Error("Backfill job failed", zap.Error(err))
		} else {
			logging.Info("Backfill job completed", zap.Int("updated", count))
			enrichedCounter.Add(float64(count))
		}
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupEducationRoutes(rg *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	r := rg.Group("/education")

	r.GET("/", func(c *gin.Context) {
		var entries []models.Education
		if err := db.Where("user_id = ?", c.GetString("userID")).Order("grad_year desc").Find(&entries).Error; err != nil {
			log.Error("Database query for education failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	r.POST("/", func(c *gin.Context) {
		var entry models.Education
		if err := c.ShouldBindJSON(&entry); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		entry.ID = 0
		entry.UserID = c.GetString("userID")
		if err := db.Create(&entry).Error; err != nil {
			log.Error("DB error creating education entry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create education entry"})
			return
		}
		c.JSON(http.StatusCreated, entry)
	})

	r.PUT("/:id", func(c *gin.Context) {
		var entry models.Education
		if !loadOwned(c, db, log, &entry, "education entry") {
			return
		}
		var updateData map[string]interface{}
		if err := c.ShouldBindJSON(&updateData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		stripProtectedFields(updateData)
		if err := db.Model(&entry).Updates(updateData).Error; err != nil {
			log.Error("DB error updating education entry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update education entry"})
			return
		}
		c.JSON(http.StatusOK, entry)
	})

	r.DELETE("/:id", func(c *gin.Context) {
		var entry models.Education
		if !loadOwned(c, db, log, &entry, "education entry") {
			return
		}
		if err := db.Delete(&entry).Error; err != nil {
			log.Error("DB error deleting education entry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete education entry"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func setupExperienceRoutes(rg *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	r := rg.Group("/professional-experience")

	r.GET("/", func(c *gin.Context) {
		var entries []models.ProfessionalExperience
		if err := db.Where("user_id = ?", c.GetString("userID")).Order("start_year desc").Find(&entries).Error; err != nil {
			log.Error("Database query for experience failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, entries)
	})

	r.POST("/", func(c *gin.Context) {
		var entry models.ProfessionalExperience
		if err := c.ShouldBindJSON(&entry); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		entry.ID = 0
		entry.UserID = c.GetString("userID")
		if err := db.Create(&entry).Error; err != nil {
			log.Error("DB error creating experience entry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create experience entry"})
			return
		}
		c.JSON(http.StatusCreated, entry)
	})

	r.PUT("/:id", func(c *gin.Context) {
		var entry models.ProfessionalExperience
		if !loadOwned(c, db, log, &entry, "experience entry") {
			return
		}
		var updateData map[string]interface{}
		if err := c.ShouldBindJSON(&updateData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		stripProtectedFields(updateData)
		if err := db.Model(&entry).Updates(updateData).Error; err != nil {
			log.Error("DB error updating experience entry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update experience entry"})
			return
		}
		c.JSON(http.StatusOK, entry)
	})

	r.DELETE("/:id", func(c *gin.Context) {
		var entry models.ProfessionalExperience
		if !loadOwned(c, db, log, &entry, "experience entry") {
			return
		}
		if err := db.Delete(&entry).Error; err != nil {
			log.Error("DB error deleting experience entry", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete experience entry"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func setupPublicationRoutes(rg *gin.RouterGroup, db *gorm.DB, metadata *services.MetadataService, log *zap.Logger) {
	r := rg.Group("/publications")

	r.GET("/", func(c *gin.Context) {
		var pubs []models.Publication
		if err := db.Where("user_id = ?", c.GetString("userID")).Order("year desc, id desc").Find(&pubs).Error; err != nil {
			log.Error("Database query for publications failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, pubs)
	})

	r.POST("/", func(c *gin.Context) {
		var pub models.Publication
		if err := c.ShouldBindJSON(&pub); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		pub.ID = 0
		pub.UserID = c.GetString("userID")
		if metadata.Enrich(&pub) {
			enrichedCounter.Inc()
		}
		if err := db.Create(&pub).Error; err != nil {
			log.Error("DB error creating publication", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create publication"})
			return
		}
		c.JSON(http.StatusCreated, pub)
	})

	r.PUT("/:id", func(c *gin.Context) {
		var pub models.Publication
		if !loadOwned(c, db, log, &pub, "publication") {
			return
		}
		var updateData map[string]interface{}
		if err := c.ShouldBindJSON(&updateData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		stripProtectedFields(updateData)
		if err := db.Model(&pub).Updates(updateData).Error; err != nil {
			log.Error("DB error updating publication", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update publication"})
			return
		}
		if metadata.Enrich(&pub) {
			enrichedCounter.Inc()
			if err := db.Save(&pub).Error; err != nil {
				log.Error("DB error saving enriched publication", zap.Error(err))
			}
		}
		c.JSON(http.StatusOK, pub)
	})

	r.DELETE("/:id", func(c *gin.Context) {
		var pub models.Publication
		if !loadOwned(c, db, log, &pub, "publication") {
			return
		}
		if err := db.Delete(&pub).Error; err != nil {
			log.Error("DB error deleting publication", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete publication"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func setupAwardRoutes(rg *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	r := rg.Group("/awards")

	r.GET("/", func(c *gin.Context) {
		var awards []models.Award
		if err := db.Where("user_id = ?", c.GetString("userID")).Order("year desc").Find(&awards).Error; err != nil {
			log.Error("Database query for awards failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, awards)
	})

	r.POST("/", func(c *gin.Context) {
		var award models.Award
		if err := c.ShouldBindJSON(&award); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		award.ID = 0
		award.UserID = c.GetString("userID")
		if err := db.Create(&award).Error; err != nil {
			log.Error("DB error creating award", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create award"})
			return
		}
		c.JSON(http.StatusCreated, award)
	})

	r.PUT("/:id", func(c *gin.Context) {
		var award models.Award
		if !loadOwned(c, db, log, &award, "award") {
			return
		}
		var updateData map[string]interface{}
		if err := c.ShouldBindJSON(&updateData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		stripProtectedFields(updateData)
		if err := db.Model(&award).Updates(updateData).Error; err != nil {
			log.Error("DB error updating award", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update award"})
			return
		}
		c.JSON(http.StatusOK, award)
	})

	r.DELETE("/:id", func(c *gin.Context) {
		var award models.Award
		if !loadOwned(c, db, log, &award, "award") {
			return
		}
		if err := db.Delete(&award).Error; err != nil {
			log.Error("DB error deleting award", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete award"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func setupPersonalStatementRoutes(rg *gin.RouterGroup, db *gorm.DB, log *zap.Logger) {
	r := rg.Group("/personal-statements")

	r.GET("/", func(c *gin.Context) {
		var statements []models.PersonalStatement
		if err := db.Where("user_id = ?", c.GetString("userID")).Order("updated_at desc").Find(&statements).Error; err != nil {
			log.Error("Database query for personal statements failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, statements)
	})

	r.POST("/", func(c *gin.Context) {
		var statement models.PersonalStatement
		if err := c.ShouldBindJSON(&statement); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		statement.ID = 0
		statement.UserID = c.GetString("userID")
		if err := db.Create(&statement).Error; err != nil {
			log.Error("DB error creating personal statement", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create personal statement"})
			return
		}
		c.JSON(http.StatusCreated, statement)
	})

	r.PUT("/:id", func(c *gin.Context) {
		var statement models.PersonalStatement
		if !loadOwned(c, db, log, &statement, "personal statement") {
			return
		}
		var updateData map[string]interface{}
		if err := c.ShouldBindJSON(&updateData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		stripProtectedFields(updateData)
		if err := db.Model(&statement).Updates(updateData).Error; err != nil {
			log.Error("DB error updating personal statement", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update personal statement"})
			return
		}
		c.JSON(http.StatusOK, statement)
	})

	r.DELETE("/:id", func(c *gin.Context) {
		var statement models.PersonalStatement
		if !loadOwned(c, db, log, &statement, "personal statement") {
			return
		}
		if err := db.Delete(&statement).Error; err != nil {
			log.Error("DB error deleting personal statement", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete personal statement"})
			return
		}
		c.Status(http.StatusNoContent)
	})
}

func setupBiosketchRoutes(rg *gin.RouterGroup, db *gorm.DB, biosketch *services.BiosketchService, log *zap.Logger) {
	// Saved biosketch configurations.
	r := rg.Group("/biosketches")

	r.GET("/", func(c *gin.Context) {
		var configs []models.Biosketch
		if err := db.Where("user_id = ?", c.GetString("userID")).Order("updated_at desc").Find(&configs).Error; err != nil {
			log.Error("Database query for biosketch configs failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, configs)
	})

	r.POST("/", func(c *gin.Context) {
		var cfg models.Biosketch
		if err := c.ShouldBindJSON(&cfg); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		cfg.ID = 0
		cfg.UserID = c.GetString("userID")
		if err := db.Create(&cfg).Error; err != nil {
			log.Error("DB error creating biosketch config", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create biosketch config"})
			return
		}
		c.JSON(http.StatusCreated, cfg)
	})

	r.PUT("/:id", func(c *gin.Context) {
		var cfg models.Biosketch
		if !loadOwned(c, db, log, &cfg, "biosketch config") {
			return
		}
		var updateData map[string]interface{}
		if err := c.ShouldBindJSON(&updateData); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		stripProtectedFields(updateData)
		if err := db.Model(&cfg).Updates(updateData).Error; err != nil {
			log.Error("DB error updating biosketch config", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update biosketch config"})
			return
		}
		c.JSON(http.StatusOK, cfg)
	})

	r.DELETE("/:id", func(c *gin.Context) {
		var cfg models.Biosketch
		if !loadOwned(c, db, log, &cfg, "biosketch config") {
			return
		}
		if err := db.Delete(&cfg).Error; err != nil {
			log.Error("DB error deleting biosketch config", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete biosketch config"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	// Document generation. The result is streamed to the caller and never
	// persisted server-side.
	rg.POST("/biosketch", func(c *gin.Context) {
		var req services.BiosketchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}

		doc, err := biosketch.Generate(c.Request.Context(), c.GetString("userID"), &req)
		if err != nil {
			status := services.HTTPStatus(err)
			body := gin.H{"error": err.Error()}
			if hint := services.Hint(err); hint != "" {
				body["hint"] = hint
			}
			// Operators debug failed runs from the raw toolchain log, so
			// it is passed through verbatim.
			var compErr *services.CompilationError
			if errors.As(err, &compErr) && compErr.Diagnostics != "" {
				body["diagnostics"] = compErr.Diagnostics
			}
			if status >= http.StatusInternalServerError {
				log.Error("Biosketch generation failed", zap.Error(err))
			}
			c.JSON(status, body)
			return
		}

		format := req.Format
		if format == "" {
			format = "pdf"
		}
		biosketchCounter.WithLabelValues(format).Inc()
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
		c.Header("Content-Length", strconv.Itoa(len(doc.Bytes)))
		c.Data(http.StatusOK, doc.ContentType, doc.Bytes)
	})
}

// loadOwned fetches the record at :id scoped to the authenticated user and
// writes the error response itself when the lookup fails.
func loadOwned(c *gin.Context, db *gorm.DB, log *zap.Logger, dest interface{}, name string) bool {
	id := c.Param("id")
	err := db.Where("user_id = ?", c.GetString("userID")).First(dest, "id = ?", id).Error
	if err == nil {
		return true
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": name + " not found"})
		return false
	}
	log.Error("DB error loading record", zap.String("id", id), zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
	return false
}

// stripProtectedFields removes keys a partial update must never touch.
func stripProtectedFields(updateData map[string]interface{}) {
	delete(updateData, "id")
	delete(updateData, "user")
	delete(updateData, "user_id")
	delete(updateData, "created_at")
	delete(updateData, "updated_at")
}
