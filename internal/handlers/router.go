package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/roomledger/roomledger/internal/middleware"
	"github.com/sirupsen/logrus"
)

type Router struct {
	Auth           *AuthHandlers
	Accounts       *AccountHandlers
	Ledger         *LedgerHandlers
	Sessions       *middleware.SessionManager
	AuthMiddleware *middleware.AuthMiddleware
	TrustedOrigins []string
	Logger         *logrus.Logger
}

// Handler builds the route table. OPTIONS is listed on every route so that
// preflight requests match and reach the CORS middleware.
func (rt *Router) Handler() *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.CORSMiddleware(rt.TrustedOrigins))
	router.Use(middleware.LoggingMiddleware(rt.Logger))

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET", "OPTIONS")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(rt.Sessions.LoadSession)
	api.Use(rt.Sessions.FixationGuard)

	auth := api.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", rt.Auth.Login).Methods("POST", "OPTIONS")
	auth.HandleFunc("/verify-otp", rt.Auth.VerifyOTP).Methods("POST", "OPTIONS")
	auth.HandleFunc("/logout", rt.Auth.Logout).Methods("POST", "OPTIONS")

	api.HandleFunc("/rooms", rt.Accounts.ListRooms).Methods("GET", "OPTIONS")
	api.HandleFunc("/register/admin", rt.Accounts.RegisterAdmin).Methods("POST", "OPTIONS")
	api.HandleFunc("/register/roommate", rt.Accounts.RegisterRoommate).Methods("POST", "OPTIONS")

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(rt.AuthMiddleware.RequireAdmin)
	admin.HandleFunc("/dashboard", rt.Ledger.AdminDashboard).Methods("GET", "OPTIONS")
	admin.HandleFunc("/roommates/pending", rt.Accounts.PendingRoommates).Methods("GET", "OPTIONS")
	admin.HandleFunc("/roommates/{id}/approve", rt.Accounts.Approve).Methods("POST", "OPTIONS")
	admin.HandleFunc("/roommates/{id}/reject", rt.Accounts.Reject).Methods("POST", "OPTIONS")
	admin.HandleFunc("/rent-plan", rt.Ledger.SetRentPlan).Methods("PUT", "OPTIONS")
	admin.HandleFunc("/payments", rt.Ledger.RecordPayment).Methods("POST", "OPTIONS")
	admin.HandleFunc("/transactions", rt.Ledger.RecordTransaction).Methods("POST", "OPTIONS")

	me := api.PathPrefix("/me").Subrouter()
	me.Use(rt.AuthMiddleware.RequireAuth)
	me.HandleFunc("/dashboard", rt.Ledger.MemberDashboard).Methods("GET", "OPTIONS")

	return router
}
