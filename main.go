package main

import (
	"embed"
	"io"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"github.com/urfave/negroni"
)

//go:embed templates
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

//go:embed schema.sql config.sample.toml
var setupFS embed.FS

var (
	appMode        = "run_app"
	configFilePath = "config.toml"
)

func init() {
	flag.StringVar(&configFilePath, "config", "config.toml", "path to config file")
	initApp := flag.Bool("init", false, "app initialization, creates a db and config file in current dir")

	flag.Parse()

	if *initApp == true {
		appMode = "init_app"
	}
}

func newRouter(app *App) *mux.Router {
	r := mux.NewRouter()

	api := mux.NewRouter().PathPrefix("/api").Subrouter().StrictSlash(true)
	api.HandleFunc("/applications", app.HandleListApplications).Methods(http.MethodGet)
	api.HandleFunc("/applications", app.HandleCreateApplication).Methods(http.MethodPost)
	api.HandleFunc("/applications/preview", app.HandlePreview).Methods(http.MethodGet)
	api.HandleFunc("/applications/reorder", app.HandleReorderApplications).Methods(http.MethodPatch)
	api.HandleFunc("/applications/{id}", app.HandleUpdateApplication).Methods(http.MethodPut)
	api.HandleFunc("/applications/{id}", app.HandleDeleteApplication).Methods(http.MethodDelete)
	api.HandleFunc("/icons", app.HandleListIcons).Methods(http.MethodGet)
	api.HandleFunc("/icons", app.HandleUploadIcon).Methods(http.MethodPost)
	api.HandleFunc("/icons/{id}", app.HandleRenameIcon).Methods(http.MethodPut)
	api.HandleFunc("/icons/{id}", app.HandleDeleteIcon).Methods(http.MethodDelete)
	api.HandleFunc("/userinfo", app.HandleUserInfo).Methods(http.MethodGet)
	api.HandleFunc("/admin/me", app.HandleAdminMe).Methods(http.MethodGet)

	// Mutations require the proxy-asserted identity; reads pass through.
	r.PathPrefix("/api").Handler(negroni.New(
		negroni.NewLogger(),
		negroni.HandlerFunc(requireAdmin(app.Gate)),
		negroni.Wrap(api),
	))

	r.HandleFunc("/icon-files/{name}", app.HandleIconFile).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.FileServer(http.FS(staticFS)))
	r.HandleFunc("/", app.HandleHome)

	return r
}

func runApp(configFilePath string) {
	// .env is optional; the reverse-proxy deployment sets real env vars.
	godotenv.Load()

	cfg := initConfig(configFilePath)

	app, err := NewApp(cfg)
	if err != nil {
		log.Fatalln(err)
	}

	srv := &http.Server{
		Handler:      newRouter(app),
		Addr:         cfg.HTTPAddr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	log.Println("starting server at", cfg.HTTPAddr)
	log.Fatal(srv.ListenAndServe())
}

func initAppFiles() {
	initDB("app.db")

	if err := os.MkdirAll("data/icons", 0o755); err != nil {
		log.Fatal(err)
	}

	outCfgFile, err := os.Create("config.toml")
	if err != nil {
		log.Fatal(err)
	}
	defer outCfgFile.Close()

	setupCfgFile, err := setupFS.Open("config.sample.toml")
	if err != nil {
		log.Fatal(err)
	}
	defer setupCfgFile.Close()

	if _, err := io.Copy(outCfgFile, setupCfgFile); err != nil {
		log.Fatal(err)
	}

	log.Println("config.toml, app.db and data/icons generated.")
}

func main() {
	switch appMode {
	case "init_app":
		initAppFiles()
	default:
		runApp(configFilePath)
	}
}
