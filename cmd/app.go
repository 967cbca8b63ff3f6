package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopsmart_v1_202610/internal/config"
	"shopsmart_v1_202610/internal/console"
	"shopsmart_v1_202610/internal/controller"
	"shopsmart_v1_202610/internal/middleware"
	"shopsmart_v1_202610/internal/repository"
	"shopsmart_v1_202610/internal/router"
	"shopsmart_v1_202610/internal/service"
	"shopsmart_v1_202610/internal/task"
	"shopsmart_v1_202610/pkg/catalogapi"
)

// ==================== 依赖容器 ====================

// App 服务依赖
type App struct {
	cfg      *config.Config
	sessions *console.Manager
	tasks    *task.TaskManager
	engine   *gin.Engine
}

// Repositories 仓库集合
type Repositories struct {
	User     repository.UserRepository
	Role     repository.RoleRepository
	Category repository.CategoryRepository
	Product  repository.ProductRepository
	Order    repository.OrderRepository
	Stock    repository.StockRepository
}

// Services 服务集合
type Services struct {
	User     *service.UserService
	Catalog  *service.CatalogService
	Order    *service.OrderService
	Stock    *service.StockService
	Forecast *service.ForecastService
	Storage  service.StorageProvider
}

// ==================== 初始化函数 ====================

func newUserService(db *gorm.DB) *service.UserService {
	return service.NewUserService(repository.NewUserRepository(db), repository.NewRoleRepository(db))
}

// initRepositories 初始化所有仓库
func initRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:     repository.NewUserRepository(db),
		Role:     repository.NewRoleRepository(db),
		Category: repository.NewCategoryRepository(db),
		Product:  repository.NewProductRepository(db),
		Order:    repository.NewOrderRepository(db),
		Stock:    repository.NewStockRepository(db),
	}
}

// initStorage 初始化存储；失败时图片上传不可用，其余功能照常
func initStorage(cfg config.StorageConfig) service.StorageProvider {
	provider, err := service.NewStorageProvider(&service.StorageConfig{
		Provider:  cfg.Provider,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Endpoint:  cfg.Endpoint,
		CDNDomain: cfg.CDNDomain,
		BasePath:  cfg.BasePath,
		LocalDir:  cfg.LocalDir,
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		zap.L().Warn("storage disabled", zap.Error(err))
		return nil
	}
	return provider
}

// initServices 初始化业务服务
func initServices(cfg *config.Config, db *gorm.DB, repos *Repositories) *Services {
	storage := initStorage(cfg.Storage)
	return &Services{
		User:     service.NewUserService(repos.User, repos.Role),
		Catalog:  service.NewCatalogService(repos.Category, repos.Product, storage),
		Order:    service.NewOrderService(repos.Order, repos.Product, repos.Stock, cfg.Checkout.Shipping()),
		Stock:    service.NewStockService(db, repos.Product, repos.Stock, cfg.Stock.LowThreshold),
		Forecast: service.NewForecastService(repos.Order, repos.Product),
		Storage:  storage,
	}
}

// initBackend 本地数据库或远程 API
func initBackend(cfg *config.Config, svc *Services) console.Backend {
	if !cfg.IsRemote() {
		return console.NewLocalBackend(svc.User, svc.Catalog, svc.Order)
	}
	client := catalogapi.New(catalogapi.Options{
		BaseURL:    cfg.Remote.BaseURL,
		Timeout:    cfg.Remote.Timeout,
		RetryCount: cfg.Remote.RetryCount,
	})
	zap.L().Info("using remote catalog api", zap.String("base_url", cfg.Remote.BaseURL))
	return console.NewRemoteBackend(client, cfg.Checkout.Shipping())
}

// initControllers 初始化所有控制器
func initControllers(svc *Services, sessions *console.Manager) router.Controllers {
	return router.Controllers{
		Auth:    controller.NewAuthController(svc.User, sessions),
		User:    controller.NewUserController(svc.User),
		Catalog: controller.NewCatalogController(svc.Catalog),
		Console: controller.NewConsoleController(sessions),
		Shop:    controller.NewShopController(sessions),
		Order:   controller.NewOrderController(svc.Order),
		Stock:   controller.NewStockController(svc.Stock, svc.Forecast),
	}
}

// newApp 组装全部依赖
func newApp(cfg *config.Config) (*App, error) {
	middleware.SetJWTConfig(&middleware.JWTConfig{
		SecretKey:       cfg.JWT.Secret,
		AccessTokenTTL:  cfg.JWT.AccessTTL,
		RefreshTokenTTL: cfg.JWT.RefreshTTL,
		Issuer:          "shopsmart",
	})

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := middleware.RegisterAuditCallbacks(db); err != nil {
		return nil, err
	}

	repos := initRepositories(db)
	services := initServices(cfg, db, repos)
	if err := services.User.EnsureBuiltinRoles(context.Background()); err != nil {
		return nil, err
	}

	sessions := console.NewManager(initBackend(cfg, services), console.Options{
		NoticeDelay: cfg.Wizard.NoticeDelay,
		SessionTTL:  cfg.Wizard.SessionTTL,
	})
	limiter := middleware.NewCooldown()
	// 会话回收后释放其提交冷却
	sessions.OnEvict(func(id string) { limiter.Reset(middleware.SubmitKey(id)) })

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestLogger())

	opts := router.Options{
		Limiter:          limiter,
		SubmitCooldown:   cfg.Wizard.SubmitCooldown,
		CheckoutCooldown: cfg.Checkout.Cooldown,
	}
	if cfg.Storage.Provider == "local" || cfg.Storage.Provider == "" {
		opts.UploadDir = cfg.Storage.LocalDir
		opts.UploadURL = cfg.Storage.PublicURL
	}
	router.InitRoutes(engine, initControllers(services, sessions), opts)

	var tasks *task.TaskManager
	if cfg.Tasks.Enabled {
		tasks = task.NewTaskManager(&task.TaskManagerDeps{Sessions: sessions, Stock: services.Stock})
	}

	return &App{
		cfg:      cfg,
		sessions: sessions,
		tasks:    tasks,
		engine:   engine,
	}, nil
}

// ==================== 服务启动 ====================

// run 启动服务，收到退出信号后优雅关闭
func (a *App) run(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.tasks != nil {
		if err := a.tasks.Start(); err != nil {
			return err
		}
		defer a.tasks.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zap.L().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	zap.L().Info("server stopped", zap.Int("open_sessions", a.sessions.Len()))
	return nil
}
