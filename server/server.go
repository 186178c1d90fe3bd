// Package server exposes reset/step over HTTP so proof searches can be
// driven remotely, one lean-gym process per session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leanrl/lean-rl-search/cache"
	"github.com/leanrl/lean-rl-search/leangym"
)

type Config struct {
	Addr       string
	RootDir    string // lean-gym checkout used by every session
	BinaryPath string
	Args       []string
	Timeout    time.Duration
	Cache      cache.TacticCache // shared across sessions, keys are namespaced
}

type Server struct {
	config *Config
	ctx    context.Context
	server *http.Server

	lock     sync.Mutex
	sessions map[string]*leangym.Env
	nextID   int
}

func New(ctx context.Context, config *Config) *Server {
	s := &Server{
		config:   config,
		ctx:      ctx,
		sessions: make(map[string]*leangym.Env),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.POST("/reset", s.handleReset)
	r.POST("/step", s.handleStep)
	r.POST("/close", s.handleClose)
	r.GET("/sessions", s.handleSessions)
	s.server = &http.Server{
		Addr:    config.Addr,
		Handler: r,
	}

	return s
}

// Handler exposes the router, used by tests
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() {
	go func() {
		s.server.ListenAndServe()
	}()

	go func() {
		<-s.ctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.server.Shutdown(ctx)
		s.closeAll()
	}()
}

func (s *Server) closeAll() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, env := range s.sessions {
		env.Close()
	}
	s.sessions = make(map[string]*leangym.Env)
}

type resetRequest struct {
	SessionID string `json:"session_id"`
	Decl      string `json:"decl" binding:"required"`
}

type stepRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	StateID   string `json:"state_id"`
	Tactic    string `json:"tactic" binding:"required"`
}

type closeRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

func (s *Server) handleReset(c *gin.Context) {
	req := resetRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}

	env, id, err := s.getOrCreate(req.SessionID)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	state, err := env.ResetTo(req.Decl)
	if err != nil {
		var notFound *leangym.DeclarationNotFoundError
		if errors.As(err, &notFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": id,
		"state_id":   state.ID,
		"goal":       state.Goal,
	})
}

func (s *Server) handleStep(c *gin.Context) {
	req := stepRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}

	env, ok := s.get(req.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session: " + req.SessionID})
		return
	}

	result, err := env.Step(leangym.NewAction(req.StateID, req.Tactic))
	if err != nil {
		if errors.Is(err, leangym.ErrInvalidState) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	out := gin.H{
		"state_id": result.State.ID,
		"goal":     result.State.Goal,
		"reward":   result.Reward,
		"done":     result.Done,
	}
	if result.Info != nil && result.Info.Error != "" {
		out["error"] = result.Info.Error
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleClose(c *gin.Context) {
	req := closeRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to unmarshal request"})
		return
	}

	s.lock.Lock()
	env, ok := s.sessions[req.SessionID]
	delete(s.sessions, req.SessionID)
	s.lock.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session: " + req.SessionID})
		return
	}
	env.Close()
	c.JSON(http.StatusOK, gin.H{"message": "ok"})
}

func (s *Server) handleSessions(c *gin.Context) {
	s.lock.Lock()
	defer s.lock.Unlock()
	out := make([]gin.H, 0, len(s.sessions))
	for id, env := range s.sessions {
		out = append(out, gin.H{"session_id": id, "decl": env.Decl()})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out})
}

func (s *Server) get(id string) (*leangym.Env, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	env, ok := s.sessions[id]
	return env, ok
}

// getOrCreate returns the session's environment, spawning a fresh prover
// process when the id is empty or unknown
func (s *Server) getOrCreate(id string) (*leangym.Env, string, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if id != "" {
		if env, ok := s.sessions[id]; ok {
			return env, id, nil
		}
	}

	s.nextID += 1
	id = strconv.Itoa(s.nextID)
	env, err := leangym.NewEnv(&leangym.EnvConfig{
		RootDir:        s.config.RootDir,
		BinaryPath:     s.config.BinaryPath,
		Args:           s.config.Args,
		Timeout:        s.config.Timeout,
		Cache:          s.config.Cache,
		CacheNamespace: fmt.Sprintf("session-%s-%d", id, time.Now().UnixNano()),
	})
	if err != nil {
		return nil, "", err
	}
	s.sessions[id] = env
	return env, id, nil
}
