package middleware

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"group-vault/internal/core/domain"
	"group-vault/internal/core/ports"
	"group-vault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type auditRoute struct {
	action       domain.AuditAction
	resourceType string
	resourceKey  string // path param naming the resource, if any
}

// auditRoutes maps "METHOD route-pattern" to the audited action.
var auditRoutes = map[string]auditRoute{
	"POST /api/v1/vaults":                           {domain.AuditActionVaultCreate, "vault", ""},
	"DELETE /api/v1/vaults/:id":                     {domain.AuditActionVaultDelete, "vault", "id"},
	"POST /api/v1/vaults/:id/deposits":              {domain.AuditActionDeposit, "vault_transaction", ""},
	"POST /api/v1/vaults/:id/withdrawals":           {domain.AuditActionWithdraw, "vault_transaction", ""},
	"POST /api/v1/vaults/:id/members":               {domain.AuditActionMemberInvite, "vault_member", ""},
	"POST /api/v1/vaults/:id/members/accept":        {domain.AuditActionMemberAccept, "vault_member", ""},
	"PUT /api/v1/vaults/:id/members/:userId/role":   {domain.AuditActionMemberRole, "vault_member", "userId"},
	"PUT /api/v1/vaults/:id/members/:userId/limits": {domain.AuditActionMemberLimits, "vault_member", "userId"},
	"DELETE /api/v1/vaults/:id/members/:userId":     {domain.AuditActionMemberRemove, "vault_member", "userId"},
	"POST /api/v1/vaults/:id/wallets":               {domain.AuditActionWalletCreate, "wallet", ""},
	"POST /api/v1/wallets/:id/parties":              {domain.AuditActionPartyAdd, "wallet", "id"},
	"DELETE /api/v1/wallets/:id/parties/:partyId":   {domain.AuditActionPartyDeactivate, "wallet_party", "partyId"},
	"POST /api/v1/wallets/:id/proposals":            {domain.AuditActionPropose, "wallet", "id"},
	"POST /api/v1/proposals/:id/votes":              {domain.AuditActionVote, "pending_approval", "id"},
	"POST /api/v1/proposals/:id/cancel":             {domain.AuditActionCancel, "pending_approval", "id"},
}

// AuditLog records successful mutating requests after the handler ran.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 300 {
			return
		}
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			return
		}

		route, ok := auditRoutes[c.Request.Method+" "+c.FullPath()]
		if !ok {
			return
		}

		entry := &domain.AuditLog{
			ID:           uuid.New(),
			Action:       route.action,
			ResourceType: route.resourceType,
			IPAddress:    c.ClientIP(),
			CreatedAt:    time.Now().UTC(),
		}
		if id, ok := UserID(c); ok {
			entry.ActorID = id
		}
		if route.resourceKey != "" {
			entry.ResourceID = c.Param(route.resourceKey)
		}
		// Only /vaults/:id routes carry the vault id in the path.
		if strings.HasPrefix(c.FullPath(), "/api/v1/vaults/:id") {
			if vaultID, err := uuid.Parse(c.Param("id")); err == nil {
				entry.VaultID = &vaultID
			}
		}

		details, _ := json.Marshal(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"request_id": c.GetString(response.RequestIDKey),
		})
		entry.Details = string(details)

		auditSvc.Log(c.Request.Context(), entry)
	}
}
