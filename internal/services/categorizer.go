package services

import (
	"context"
	"log/slog"
	"strings"

	"spendlens/internal/core"
	ports "spendlens/internal/statements"
)

var _ ports.Categorizer = (*Categorizer)(nil)

// RuleLookup resolves a learned category for a description.
type RuleLookup interface {
	LookupRule(ctx context.Context, description string) (category string, ok bool, err error)
}

// Keywords per category, checked in canonical category order.
var categoryKeywords = map[string][]string{
	core.CategoryGrocery: {"CARGILLS", "KEELLS", "SUPERMARKET", "MARKET", "GROCERY", "FOOD CITY",
		"ARPICO", "LAUGFS", "SPAR", "LAUGHS", "KADA", "BAKERY", "FARM", "STORE", "MART", "SUPER CENTER"},
	core.CategoryFuel: {"CEYPETCO", "IOC", "FUEL", "PETROL", "LANKA IOC", "FILLING STATION",
		"GAS STATION", "DIESEL", "SHELL", "PETROLEUM"},
	core.CategoryTextile: {"FASHION", "CLOTHING", "TEXTILE", "GARMENT", "FABRIC", "ODEL", "NOLIMIT",
		"COOL PLANET", "DRESS", "SAREE", "BOUTIQUE", "TAILOR", "ACCESSORY", "JEWELRY"},
	core.CategoryDining: {"RESTAURANT", "CAFE", "PIZZA", "BURGER", "DINE", "DINING", "FOOD", "EAT",
		"TAKEOUT", "DELIVERY", "BISTRO", "KITCHEN", "GRILL", "BUFFET", "BAR", "PUB", "FAST FOOD",
		"COFFEE", "TEA", "BAKE"},
	core.CategoryUtilities: {"ELECTRICITY", "WATER", "GAS", "INTERNET", "PHONE", "MOBILE", "TELECOM",
		"BILL PAY", "UTILITY", "BROADBAND", "CELL", "SERVICE PROVIDER", "POWER", "ENERGY",
		"CONNECTION", "COMMUNICATION"},
	core.CategoryHousing: {"RENT", "MORTGAGE", "PROPERTY", "TAX", "MAINTENANCE", "REPAIR", "HOUSING",
		"APARTMENT", "CONDO", "LEASE", "TENANT", "LANDLORD", "HOME", "REAL ESTATE", "HOA", "CLEANING",
		"PLUMBER", "ELECTRICIAN"},
	core.CategoryHealthcare: {"MEDICAL", "HEALTH", "DOCTOR", "HOSPITAL", "PHARMACY", "PRESCRIPTION",
		"CLINIC", "INSURANCE", "DENTAL", "VISION", "THERAPY", "MEDICINE", "LABORATORY", "PHYSICIAN",
		"HEALTHCARE", "WELLNESS"},
	core.CategoryEntertainment: {"ENTERTAINMENT", "MOVIE", "THEATRE", "CONCERT", "TICKET", "NETFLIX",
		"SPOTIFY", "DISNEY", "STREAMING", "SUBSCRIPTION", "SHOW", "EVENT", "GAME", "PLAY", "FUN",
		"LEISURE", "RECREATION", "AMUSEMENT", "PARK"},
	core.CategoryTravel: {"HOTEL", "FLIGHT", "AIRLINE", "AIRWAYS", "BOOKING", "TRAVEL", "VACATION",
		"HOLIDAY", "TRIP", "TOUR", "RESORT", "LODGE", "AIRBNB", "CAR RENTAL", "TAXI", "TRANSPORT",
		"TOURISM", "AIRPORT"},
	core.CategoryTransportation: {"BUS", "TRAIN", "METRO", "SUBWAY", "PUBLIC TRANSIT", "UBER", "LYFT",
		"RIDESHARE", "VEHICLE", "MAINTENANCE", "AUTO", "SERVICE", "OIL CHANGE", "REPAIR", "FARE",
		"TICKET", "COMMUTE", "TRANSPORTATION"},
	core.CategoryShopping: {"RETAIL", "SHOP", "STORE", "MALL", "ONLINE", "E-COMMERCE", "AMAZON", "EBAY",
		"DEPARTMENT", "PURCHASE", "BUY", "CONSUMER", "MERCHANDISE", "PRODUCT", "ITEM", "SHOPPING"},
	core.CategoryEducation: {"TUITION", "SCHOOL", "COLLEGE", "UNIVERSITY", "COURSE", "CLASS",
		"EDUCATION", "STUDENT", "BOOK", "LEARNING", "STUDY", "TRAINING", "WORKSHOP", "SEMINAR",
		"INSTITUTE", "ACADEMY", "TUTORIAL"},
	core.CategoryPersonalCare: {"SALON", "HAIRCUT", "SPA", "MASSAGE", "BEAUTY", "COSMETIC",
		"PERSONAL CARE", "HYGIENE", "GROOMING", "BARBER", "STYLIST", "NAIL", "GYM", "FITNESS",
		"EXERCISE", "WELLNESS", "SELF-CARE"},
	core.CategorySubscriptions: {"SUBSCRIPTION", "MEMBERSHIP", "MONTHLY", "ANNUAL", "RECURRING",
		"SERVICE", "MAGAZINE", "NEWSPAPER", "SOFTWARE", "APP", "DIGITAL", "ACCESS", "PREMIUM",
		"ACCOUNT", "PLATFORM", "CLOUD"},
	core.CategoryInsurance: {"INSURANCE", "POLICY", "PREMIUM", "COVERAGE", "PROTECT", "LIFE", "AUTO",
		"HOME", "RENTER", "HEALTH", "LIABILITY", "CLAIM", "INSURER", "UNDERWRITER"},
	core.CategoryGifts: {"GIFT", "PRESENT", "DONATION", "CHARITY", "CONTRIBUTE", "FOUNDATION",
		"NONPROFIT", "WEDDING", "BIRTHDAY", "ANNIVERSARY", "HOLIDAY", "FUNDRAISER", "SUPPORT", "CAUSE",
		"ORGANIZATION"},
	core.CategoryFinancial: {"BANK", "FEE", "INTEREST", "INVESTMENT", "FINANCE", "CREDIT", "DEBIT",
		"LOAN", "MORTGAGE", "PAYMENT", "TRANSACTION", "TRANSFER", "DEPOSIT", "WITHDRAWAL", "BALANCE",
		"ACCOUNT", "MONEY", "CASH", "ATM", "WIRE"},
	core.CategoryPayment: {"PAYMENT CR", "INTERNET PAYMENT", "BILL PAYMENT", "CREDIT PAYMENT",
		"ONLINE PAYMENT"},
}

// Categorizer labels transaction descriptions. Learned rules win, then
// settlement detection, then the first keyword hit in canonical order.
type Categorizer struct {
	rules RuleLookup
}

// NewCategorizer builds a categorizer. rules may be nil.
func NewCategorizer(rules RuleLookup) *Categorizer {
	return &Categorizer{rules: rules}
}

func (c *Categorizer) Categorize(ctx context.Context, description string) string {
	if c.rules != nil {
		category, ok, err := c.rules.LookupRule(ctx, description)
		if err != nil {
			slog.WarnContext(ctx, "Rule lookup failed, falling back to keywords",
				"description", description, "error", err)
		} else if ok && core.IsValidCategory(category) {
			return category
		}
	}
	return KeywordCategory(description)
}

// KeywordCategory applies the built-in keyword table.
func KeywordCategory(description string) string {
	upper := strings.ToUpper(strings.TrimSpace(description))
	if upper == "" {
		return core.DefaultCategory
	}
	if strings.HasSuffix(upper, "CR") || (strings.Contains(upper, "PAYMENT") && strings.Contains(upper, "CR")) {
		return core.CategoryPayment
	}
	for _, category := range core.Categories() {
		for _, kw := range categoryKeywords[category] {
			if strings.Contains(upper, kw) {
				return category
			}
		}
	}
	return core.DefaultCategory
}
