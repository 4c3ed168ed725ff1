package controllers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ironledgerdev/medmap-backend-sub001/configuration"
	"github.com/ironledgerdev/medmap-backend-sub001/models"
	"gorm.io/gorm"
)

// Paid plans missing from the catalog are quarterly
const defaultPlanMonths = 3

// membershipTier maps a purchased plan code onto a membership tier. Plans
// priced outside the catalog buy premium.
func membershipTier(planCode string) string {
	if plan, ok := configuration.LookupPlan(planCode); ok && !plan.Free() {
		return plan.Code
	}
	return models.TierPremium
}

// activateMembership applies a paid plan. An active membership on the same
// tier that has not ended is extended from its end date, anything else
// starts a new period now.
func activateMembership(db *gorm.DB, userID uint, planCode string, now time.Time) (models.Membership, error) {
	tier := membershipTier(planCode)
	if tier != planCode {
		log.Printf("Plan %q is not a paid catalog plan, activating %s", planCode, tier)
	}
	months := defaultPlanMonths
	if plan, ok := configuration.LookupPlan(tier); ok && plan.Months > 0 {
		months = plan.Months
	}

	var m models.Membership
	err := db.Where("user_id = ?", userID).First(&m).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return m, err
	}
	found := err == nil

	start := now
	periodFrom := now
	if found && m.Status == models.MembershipActive && m.Tier == tier && m.EndDate != nil && m.EndDate.After(now) {
		start = m.StartDate
		periodFrom = *m.EndDate
	}
	end := periodFrom.AddDate(0, months, 0)

	if !found {
		m = models.Membership{
			UserID:    userID,
			Tier:      tier,
			Status:    models.MembershipActive,
			StartDate: start,
			EndDate:   &end,
		}
		return m, db.Create(&m).Error
	}

	m.Tier = tier
	m.Status = models.MembershipActive
	m.StartDate = start
	m.EndDate = &end
	err = db.Model(&m).Updates(map[string]any{
		"tier":       m.Tier,
		"status":     m.Status,
		"start_date": m.StartDate,
		"end_date":   m.EndDate,
	}).Error
	return m, err
}

// ListMemberships is the admin view of every membership
func ListMemberships(c *gin.Context) {
	query := configuration.DB.Model(&models.Membership{})
	if v := c.Query("status"); v != "" {
		query = query.Where("status = ?", v)
	}
	if v := c.Query("tier"); v != "" {
		query = query.Where("tier = ?", v)
	}

	var memberships []models.Membership
	if err := query.Order("created_at DESC, id DESC").Find(&memberships).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch memberships"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": memberships})
}

// MyMembership returns the caller's membership, free when none was bought
func MyMembership(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var m models.Membership
	if err := configuration.DB.Where("user_id = ?", user.ID).First(&m).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch membership"})
			return
		}
		m = models.Membership{UserID: user.ID, Tier: models.TierFree, Status: models.MembershipActive, StartDate: user.CreatedAt}
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": m})
}

func CancelMembership(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var m models.Membership
	if err := configuration.DB.Where("user_id = ?", user.ID).First(&m).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No membership to cancel"})
		return
	}
	if m.Status != models.MembershipActive || m.Tier == models.TierFree {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Membership is not active"})
		return
	}

	if err := configuration.DB.Model(&m).Update("status", models.MembershipCancelled).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel membership"})
		return
	}
	m.Status = models.MembershipCancelled
	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "data": m})
}

// ListPlans returns the plan catalog
func ListPlans(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "data": configuration.Plans()})
}
