package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/bitrent/bitrent-ico/config"
	"github.com/bitrent/bitrent-ico/core/crowdsale"
	"github.com/bitrent/bitrent-ico/core/proxy"
	"github.com/bitrent/bitrent-ico/core/state"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	tmlog "github.com/tendermint/tendermint/libs/log"
	"golang.org/x/sync/errgroup"
)

// Service exposes the platform to the off-chain backend over HTTP
type Service struct {
	state     *state.State
	crowdsale *crowdsale.Crowdsale
	proxy     *proxy.Proxy
	logger    tmlog.Logger
	metrics   *Metrics
}

func NewService(st *state.State, cs *crowdsale.Crowdsale, px *proxy.Proxy, logger tmlog.Logger) *Service {
	return &Service{
		state:     st,
		crowdsale: cs,
		proxy:     px,
		logger:    logger,
		metrics:   NewMetrics(),
	}
}

// Handler builds the gin router
func (s *Service) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.measure)

	r.GET("/status", s.getStatus)
	r.GET("/price", s.getPrice)
	r.POST("/price", s.postSetPrice)
	r.GET("/events/:height", s.getEvents)

	r.GET("/donors", s.getDonors)
	r.GET("/deposit/:address", s.getDeposit)
	r.POST("/deposit", s.postDonation)

	r.GET("/vault/:id", s.getVaultBalance)

	r.GET("/wallet/owners", s.getWalletOwners)
	r.GET("/wallet/transactions/:id", s.getWalletTransaction)
	r.POST("/wallet/submit", s.postWalletSubmit)
	r.POST("/wallet/confirm", s.postWalletConfirm)
	r.POST("/wallet/revoke", s.postWalletRevoke)
	r.POST("/wallet/execute", s.postWalletExecute)

	r.POST("/crowdsale/start-presale", s.postStartPresale)
	r.POST("/crowdsale/finalize-presale", s.postFinalizePresale)
	r.POST("/crowdsale/start-ico", s.postStartIco)
	r.POST("/crowdsale/finalize-ico", s.postFinalizeIco)
	r.POST("/crowdsale/invest", s.postInvest)
	r.POST("/crowdsale/allocate", s.postAllocate)

	r.POST("/proxy/add-tokens", s.postAddTokens)
	r.POST("/proxy/move-tokens", s.postMoveTokens)
	r.POST("/proxy/move-between", s.postMoveBetween)

	return r
}

// Run serves the API and the Prometheus endpoint until the context is
// canceled
func Run(ctx context.Context, cfg *config.Config, service *Service) error {
	group, ctx := errgroup.WithContext(ctx)

	apiServer := &http.Server{
		Addr:    listenAddr(cfg.APIListenAddress),
		Handler: service.Handler(),
	}

	group.Go(func() error {
		service.logger.Info("starting API", "addr", cfg.APIListenAddress)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	var metricsServer *http.Server
	if cfg.InstrumentationListenAddress != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    listenAddr(cfg.InstrumentationListenAddress),
			Handler: mux,
		}

		group.Go(func() error {
			service.logger.Info("starting instrumentation", "addr", cfg.InstrumentationListenAddress)
			if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
				return err
			}
			return nil
		})
	}

	group.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if metricsServer != nil {
			_ = metricsServer.Shutdown(shutdownCtx)
		}

		return apiServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func listenAddr(addr string) string {
	return strings.TrimPrefix(addr, "tcp://")
}
