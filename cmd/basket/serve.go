package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/five82/basket/internal/mockapi"
)

const envServeSecret = "BASKET_SERVE_SECRET"

type serveOptions struct {
	addr    string
	noSeed  bool
	origins []string
}

func newServeCmd(flags *globalFlags) *cobra.Command {
	opts := serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the in-memory demo API over HTTP",
		Long: `Serves the same API the client uses in mock mode, so a second basket
process (mode = "live") or a browser can talk to it. Data lives in memory
and is lost on exit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cliLogger(flags.debug)
			mockOpts := []mockapi.Option{mockapi.WithLogger(logger)}
			if opts.noSeed {
				mockOpts = append(mockOpts, mockapi.WithoutSeed())
			}
			mockOpts = append(mockOpts, mockapi.WithSecret([]byte(os.Getenv(envServeSecret))))
			api, err := mockapi.New(mockOpts...)
			if err != nil {
				return fmt.Errorf("build api: %w", err)
			}

			srv := &http.Server{
				Addr:         opts.addr,
				Handler:      h2c.NewHandler(newServeRouter(api, opts.origins), &http2.Server{}),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			serverErrors := make(chan error, 1)
			go func() {
				pterm.Info.Printf("Serving demo API on http://%s/api\n", opts.addr)
				if !opts.noSeed {
					pterm.Info.Printf("Demo account: %s / %s\n", mockapi.DemoEmail, mockapi.DemoPassword)
				}
				serverErrors <- srv.ListenAndServe()
			}()

			select {
			case err := <-serverErrors:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("server error: %w", err)
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(ctx); err != nil {
					_ = srv.Close()
					return fmt.Errorf("graceful shutdown failed: %w", err)
				}
				pterm.Info.Println("Server stopped")
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().BoolVar(&opts.noSeed, "no-seed", false, "start without the demo account")
	cmd.Flags().StringSliceVar(&opts.origins, "cors-origin", []string{"http://localhost:5173", "http://127.0.0.1:5173"}, "allowed browser origins")
	return cmd
}

// newServeRouter wraps the API with the shared middleware stack and a
// health endpoint.
func newServeRouter(api http.Handler, origins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Mount("/", api)
	return r
}
