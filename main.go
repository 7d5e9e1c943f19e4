package main

import (
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"moodboard/board"
	"moodboard/handlers/api/cards"
	"moodboard/stores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/engine.io/v2/utils"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

const (
	defaultMaxCards   = 50
	defaultMaxImageKB = 300
)

func setupRouter(service *board.Service) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Origin", "Host", "Connection", "Accept-Encoding", "Accept-Language", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	r.Route("/api/v2", func(r chi.Router) {
		r.Route("/cards", func(r chi.Router) {
			r.Get("/", cards.HandleListCards(service))
			r.Post("/", cards.HandleCreateCard(service))
			r.Post("/image", cards.HandleEncodeImage(service.ImageBudget()))
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/position", cards.HandleUpdatePosition(service))
				r.Delete("/", cards.HandleDeleteCard(service))
			})
		})
	})

	return r
}

// setupSocketIO wires the realtime relay: clients join a board room and
// mutations are fanned out to the other members. Nothing is persisted here;
// the HTTP API remains the source of truth.
func setupSocketIO() *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	ioo := socketio.NewServer(nil, opts)

	ioo.On("connection", func(clients ...any) {
		socket := clients[0].(*socketio.Socket)
		me := socket.Id()
		myRoom := socketio.Room(me)
		ioo.To(myRoom).Emit("init-board")
		socket.On("join-board", func(datas ...any) {
			boardRoom := socketio.Room(datas[0].(string))
			utils.Log().Printf("Socket %v has joined board %v\n", me, boardRoom)
			socket.Join(boardRoom)
			ioo.In(boardRoom).FetchSockets()(func(usersOnBoard []*socketio.RemoteSocket, _ error) {
				if len(usersOnBoard) <= 1 {
					ioo.To(myRoom).Emit("first-on-board")
				} else {
					socket.Broadcast().To(boardRoom).Emit("new-user", me)
				}

				boardUsers := []socketio.SocketId{}
				for _, user := range usersOnBoard {
					boardUsers = append(boardUsers, user.Id())
				}
				ioo.In(boardRoom).Emit(
					"board-user-change",
					boardUsers,
				)
			})
		})
		socket.On("board-broadcast", func(datas ...any) {
			boardID := datas[0].(string)
			utils.Log().Printf(" user %v sends update to board %v\n", me, boardID)
			socket.Broadcast().To(socketio.Room(boardID)).Emit("board-update", datas[1:]...)
		})
		socket.On("disconnecting", func(datas ...any) {
			for _, currentRoom := range socket.Rooms().Keys() {
				ioo.In(currentRoom).FetchSockets()(func(usersOnBoard []*socketio.RemoteSocket, _ error) {
					otherClients := []socketio.SocketId{}
					for _, userOnBoard := range usersOnBoard {
						if userOnBoard.Id() != me {
							otherClients = append(otherClients, userOnBoard.Id())
						}
					}
					if len(otherClients) > 0 {
						ioo.In(currentRoom).Emit(
							"board-user-change",
							otherClients,
						)
					}
				})
			}
		})
		socket.On("disconnect", func(datas ...any) {
			socket.RemoveAllListeners("")
			socket.Disconnect(true)
		})
	})
	return ioo
}

// handleUI serves the board frontend from FRONTEND_PATH, falling back to
// index.html for client-side routes.
func handleUI() http.HandlerFunc {
	frontendPath := os.Getenv("FRONTEND_PATH")
	if frontendPath == "" {
		frontendPath = "./frontend"
	}
	fileServer := http.FileServer(http.Dir(frontendPath))

	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path != "/" {
			if _, err := os.Stat(frontendPath + path); os.IsNotExist(err) {
				r.URL.Path = "/"
			}
		}
		fileServer.ServeHTTP(w, r)
	}
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		logrus.WithFields(logrus.Fields{"name": name, "value": raw}).Warn("Invalid integer setting, using default")
		return fallback
	}
	return v
}

func waitForShutdown(ioo *socketio.Server) {
	exit := make(chan struct{})
	SignalC := make(chan os.Signal, 1)

	signal.Notify(SignalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		for s := range SignalC {
			switch s {
			case os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				close(exit)
				return
			}
		}
	}()

	<-exit
	ioo.Close(nil)
	logrus.Info("Shutting down...")
	os.Exit(0)
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found")
	}

	listenAddress := flag.String("listen", ":3002", "The address to listen on.")
	logLevel := flag.String("loglevel", "info", "The log level (debug, info, warn, error).")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	store := stores.GetStore()
	service := board.NewService(store, board.Config{
		MaxCards:   envInt("MAX_CARDS", defaultMaxCards),
		MaxImageKB: envInt("MAX_IMAGE_KB", defaultMaxImageKB),
	})

	r := setupRouter(service)

	ioo := setupSocketIO()
	r.Mount("/socket.io/", ioo.ServeHandler(nil))
	r.NotFound(handleUI())

	logrus.WithField("addr", *listenAddress).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddress, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo)
}
