package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/creditohabitacao/leads-api/internal/session"
)

type contextKey string

const sessionKey contextKey = "sessao"

// SessionLoader lê sessões a partir do cookie do dashboard.
type SessionLoader interface {
	Get(ctx context.Context, sid string) (*session.Session, error)
}

// Auth carrega a sessão do cookie e rejeita pedidos sem sessão válida.
func Auth(store SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(session.CookieName)
			if err != nil || cookie.Value == "" {
				writeAuthError(w, "sessão em falta")
				return
			}

			sess, err := store.Get(r.Context(), cookie.Value)
			if err != nil {
				if errors.Is(err, session.ErrNotFound) {
					writeAuthError(w, "sessão inválida ou expirada")
					return
				}
				writeInternalError(w)
				return
			}

			ctx := WithSession(r.Context(), sess)
			ctx = context.WithValue(ctx, sidKey, cookie.Value)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

const sidKey contextKey = "sid"

// WithSession injeta uma sessão no contexto do pedido.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// GetSession devolve a sessão carregada pelo Auth; nil fora dele.
func GetSession(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	return sess
}

// GetSessionID devolve o sid do cookie validado pelo Auth.
func GetSessionID(ctx context.Context) string {
	sid, _ := ctx.Value(sidKey).(string)
	return sid
}

// RequireAdmin limita a rota a sessões de admin; um admin a personificar
// uma gestora mantém os poderes de admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil || !sess.IsAdmin() {
			writeForbiddenError(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireGestora limita a rota a sessões com identidade de gestora, o
// que inclui o admin em personificação.
func RequireGestora(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := GetSession(r.Context())
		if sess == nil || sess.Role != session.RoleGestora || sess.GestoraID == 0 {
			writeForbiddenError(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    "AUTH",
			"message": message,
		},
	})
}

func writeForbiddenError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    "FORBIDDEN",
			"message": "sem permissões para esta operação",
		},
	})
}

func writeInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    "INTERNAL",
			"message": "erro interno",
		},
	})
}
