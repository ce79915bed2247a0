package engine

import (
	"sort"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/models"
)

// AlertCategory names an independently computed alert list
type AlertCategory string

// Alert categories
const (
	CategoryOverdueProcurement AlertCategory = "overdue_procurement"
	CategoryDelayedReceipt     AlertCategory = "delayed_receipt"
	CategoryImpendingShortage  AlertCategory = "impending_shortage"
	CategoryAll                AlertCategory = "all"
)

// Categories lists every concrete alert category
var Categories = []AlertCategory{
	CategoryOverdueProcurement,
	CategoryDelayedReceipt,
	CategoryImpendingShortage,
}

// ParseCategory validates a category name; empty means all
func ParseCategory(s string) (AlertCategory, error) {
	switch c := AlertCategory(s); c {
	case "":
		return CategoryAll, nil
	case CategoryOverdueProcurement, CategoryDelayedReceipt, CategoryImpendingShortage, CategoryAll:
		return c, nil
	}
	return "", apperr.InvalidInput("unknown alert category %q", s)
}

// Tier is the urgency of an alert
type Tier string

// Alert tiers
const (
	TierUrgent  Tier = "urgent"
	TierWarning Tier = "warning"
)

// AlertThresholds are the day limits between tiers
type AlertThresholds struct {
	UrgentDays          int
	WarningDays         int
	ImpendingWindowDays int
}

// DefaultThresholds: urgent at a week, warning at a day, look two weeks ahead
func DefaultThresholds() AlertThresholds {
	return AlertThresholds{
		UrgentDays:          7,
		WarningDays:         1,
		ImpendingWindowDays: 14,
	}
}

// Alert is one dashboard entry
type Alert struct {
	Category  AlertCategory `json:"category"`
	Tier      Tier          `json:"tier"`
	PartCode  string        `json:"part_code"`
	PartName  string        `json:"part_name,omitempty"`
	Supplier  string        `json:"supplier,omitempty"`
	PlanID    int64         `json:"plan_id,omitempty"`
	ReceiptID int64         `json:"receipt_id,omitempty"`
	OrderNo   string        `json:"order_no,omitempty"`
	Quantity  int64         `json:"quantity"`
	Date      time.Time     `json:"date"`
	Days      int           `json:"days"`
}

// AlertSummary counts a bucket
type AlertSummary struct {
	Urgent  int `json:"urgent"`
	Warning int `json:"warning"`
	Total   int `json:"total"`
}

// AlertBucket holds one category's alerts split by tier
type AlertBucket struct {
	Category AlertCategory `json:"category"`
	Urgent   []Alert       `json:"urgent"`
	Warning  []Alert       `json:"warning"`
	Summary  AlertSummary  `json:"summary"`
}

func newBucket(category AlertCategory) *AlertBucket {
	return &AlertBucket{
		Category: category,
		Urgent:   []Alert{},
		Warning:  []Alert{},
	}
}

func (b *AlertBucket) add(a Alert) {
	a.Category = b.Category
	switch a.Tier {
	case TierUrgent:
		b.Urgent = append(b.Urgent, a)
		b.Summary.Urgent++
	case TierWarning:
		b.Warning = append(b.Warning, a)
		b.Summary.Warning++
	default:
		return
	}
	b.Summary.Total++
}

// order puts the most pressing alerts first
func (b *AlertBucket) order(desc bool) {
	less := func(list []Alert) func(i, j int) bool {
		return func(i, j int) bool {
			if list[i].Days != list[j].Days {
				if desc {
					return list[i].Days > list[j].Days
				}
				return list[i].Days < list[j].Days
			}
			if list[i].PartCode != list[j].PartCode {
				return list[i].PartCode < list[j].PartCode
			}
			if list[i].PlanID != list[j].PlanID {
				return list[i].PlanID < list[j].PlanID
			}
			return list[i].ReceiptID < list[j].ReceiptID
		}
	}
	sort.SliceStable(b.Urgent, less(b.Urgent))
	sort.SliceStable(b.Warning, less(b.Warning))
}

// lateTier tiers an elapsed delay: urgent at UrgentDays, warning at WarningDays
func (t AlertThresholds) lateTier(days int) Tier {
	switch {
	case days >= t.UrgentDays:
		return TierUrgent
	case days >= t.WarningDays:
		return TierWarning
	}
	return ""
}

// OverdueProcurement flags shortages whose procurement due date has passed
func OverdueProcurement(reqs []Requirement, today time.Time, t AlertThresholds) AlertBucket {
	b := newBucket(CategoryOverdueProcurement)
	for _, r := range reqs {
		if r.ShortageQuantity <= 0 || !Day(r.ProcurementDueDate).Before(Day(today)) {
			continue
		}
		days := DaysBetween(r.ProcurementDueDate, today)
		b.add(Alert{
			Tier:     t.lateTier(days),
			PartCode: r.PartCode,
			PartName: r.PartName,
			Supplier: r.Supplier,
			PlanID:   r.PlanID,
			Quantity: r.ShortageQuantity,
			Date:     Day(r.ProcurementDueDate),
			Days:     days,
		})
	}
	b.order(true)
	return *b
}

// DelayedReceipts flags Scheduled receipts whose scheduled date has passed
func DelayedReceipts(receipts []models.ScheduledReceipt, parts map[string]models.Part, today time.Time, t AlertThresholds) AlertBucket {
	b := newBucket(CategoryDelayedReceipt)
	for _, r := range receipts {
		if r.Status != models.ReceiptStatusScheduled || r.ScheduledDate == nil {
			continue
		}
		if !Day(*r.ScheduledDate).Before(Day(today)) {
			continue
		}
		var qty int64
		if r.ScheduledQuantity != nil {
			qty = *r.ScheduledQuantity
		}
		days := DaysBetween(*r.ScheduledDate, today)
		part := parts[r.PartCode]
		b.add(Alert{
			Tier:      t.lateTier(days),
			PartCode:  r.PartCode,
			PartName:  part.Name,
			Supplier:  part.Supplier,
			ReceiptID: r.ID,
			OrderNo:   r.OrderNo,
			Quantity:  qty,
			Date:      Day(*r.ScheduledDate),
			Days:      days,
		})
	}
	b.order(true)
	return *b
}

// ImpendingShortages flags shortages of plans starting within the look-ahead window
func ImpendingShortages(reqs []Requirement, today time.Time, t AlertThresholds) AlertBucket {
	b := newBucket(CategoryImpendingShortage)
	for _, r := range reqs {
		if r.ShortageQuantity <= 0 {
			continue
		}
		days := DaysBetween(today, r.StartDate)
		if days < 0 || days > t.ImpendingWindowDays {
			continue
		}
		tier := TierWarning
		if days <= t.UrgentDays {
			tier = TierUrgent
		}
		b.add(Alert{
			Tier:     tier,
			PartCode: r.PartCode,
			PartName: r.PartName,
			Supplier: r.Supplier,
			PlanID:   r.PlanID,
			Quantity: r.ShortageQuantity,
			Date:     Day(r.StartDate),
			Days:     days,
		})
	}
	b.order(false)
	return *b
}

// Alerts computes the requested categories from a snapshot
func (e *Engine) Alerts(s *Snapshot, category AlertCategory, today time.Time) ([]AlertBucket, error) {
	categories := []AlertCategory{category}
	if category == CategoryAll {
		categories = Categories
	}

	var reqs []Requirement
	if category != CategoryDelayedReceipt {
		var err error
		if reqs, err = e.AllRequirements(s); err != nil {
			return nil, err
		}
	}

	buckets := make([]AlertBucket, 0, len(categories))
	for _, c := range categories {
		switch c {
		case CategoryOverdueProcurement:
			buckets = append(buckets, OverdueProcurement(reqs, today, e.cfg.Thresholds))
		case CategoryDelayedReceipt:
			buckets = append(buckets, DelayedReceipts(s.Receipts, s.Parts, today, e.cfg.Thresholds))
		case CategoryImpendingShortage:
			buckets = append(buckets, ImpendingShortages(reqs, today, e.cfg.Thresholds))
		default:
			return nil, apperr.InvalidInput("unknown alert category %q", c)
		}
	}
	return buckets, nil
}
