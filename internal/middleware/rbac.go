package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/unforgotten-api/internal/models"
	appErrors "github.com/noah-isme/unforgotten-api/pkg/errors"
	"github.com/noah-isme/unforgotten-api/pkg/response"
)

// ContextMemberKey stores the caller's membership of the routed account.
const ContextMemberKey = "accountMember"

// AccountParam is the route parameter naming the account.
const AccountParam = "accountId"

// MembershipFinder resolves a user's membership of an account.
type MembershipFinder interface {
	Find(ctx context.Context, accountID, userID string) (*models.AccountMember, error)
}

// AccountAccess requires the authenticated user to be a member of the
// account named by the route.
func AccountAccess(members MembershipFinder, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		accountID := c.Param(AccountParam)
		if accountID == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "account id is required"))
			c.Abort()
			return
		}

		member, err := members.Find(c.Request.Context(), accountID, claims.UserID)
		if err != nil {
			logger.Error("membership lookup failed", zap.String("account_id", accountID), zap.Error(err))
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to verify account access"))
			c.Abort()
			return
		}
		if member == nil {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "not a member of this account"))
			c.Abort()
			return
		}

		c.Set(ContextMemberKey, member)
		c.Next()
	}
}

// RequireWriter rejects members whose role cannot modify account data.
func RequireWriter() gin.HandlerFunc {
	return func(c *gin.Context) {
		member := Member(c)
		if member == nil {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		if !member.Role.CanWrite() {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "role "+string(member.Role)+" is read-only"))
			c.Abort()
			return
		}
		c.Next()
	}
}

// Member returns the membership stored by AccountAccess.
func Member(c *gin.Context) *models.AccountMember {
	value, exists := c.Get(ContextMemberKey)
	if !exists {
		return nil
	}
	member, ok := value.(*models.AccountMember)
	if !ok {
		return nil
	}
	return member
}
