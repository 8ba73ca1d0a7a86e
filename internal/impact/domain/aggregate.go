package domain

import (
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	donationdomain "github.com/smallbiznis/donare/internal/donation/domain"
)

// Aggregate reduces donations into a snapshot. Donations that are not
// delivered are ignored. The result depends only on its inputs.
func Aggregate(donations []*donationdomain.Donation, categoryNames map[snowflake.ID]string) Snapshot {
	byCategory := map[snowflake.ID]*Figures{}
	byType := map[string]*Figures{}
	localities := map[string]struct{}{}
	var totals Totals

	for _, donation := range donations {
		if donation == nil || donation.Status != donationdomain.StatusDelivered {
			continue
		}
		people := donationdomain.DefaultPeopleImpacted
		if donation.PeopleImpacted != nil && *donation.PeopleImpacted > 0 {
			people = *donation.PeopleImpacted
		}

		add(byCategory, donation.CategoryID, people)
		add(byType, beneficiaryType(donation.BeneficiaryType), people)

		totals.Delivered++
		totals.PeopleImpacted += people
		if donation.DeliveryLocality != nil {
			if locality := strings.ToLower(strings.TrimSpace(*donation.DeliveryLocality)); locality != "" {
				localities[locality] = struct{}{}
			}
		}
	}
	totals.Localities = len(localities)

	categoryIDs := make([]snowflake.ID, 0, len(byCategory))
	for id := range byCategory {
		categoryIDs = append(categoryIDs, id)
	}
	sort.Slice(categoryIDs, func(i, j int) bool { return categoryIDs[i] < categoryIDs[j] })
	categories := make([]CategoryImpact, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		categories = append(categories, CategoryImpact{
			CategoryID:   id.String(),
			CategoryName: categoryNames[id],
			Figures:      *byCategory[id],
		})
	}

	types := make([]string, 0, len(byType))
	for tag := range byType {
		types = append(types, tag)
	}
	sort.Strings(types)
	beneficiaryTypes := make([]BeneficiaryTypeImpact, 0, len(types))
	for _, tag := range types {
		beneficiaryTypes = append(beneficiaryTypes, BeneficiaryTypeImpact{
			BeneficiaryType: tag,
			Figures:         *byType[tag],
		})
	}

	return Snapshot{
		Categories:       categories,
		BeneficiaryTypes: beneficiaryTypes,
		Totals:           totals,
	}
}

func add[K comparable](groups map[K]*Figures, key K, people int) {
	figures, ok := groups[key]
	if !ok {
		figures = &Figures{}
		groups[key] = figures
	}
	figures.Delivered++
	figures.PeopleImpacted += people
}

func beneficiaryType(value *string) string {
	if value == nil {
		return UnspecifiedBeneficiaryType
	}
	tag := strings.ToLower(strings.TrimSpace(*value))
	if tag == "" {
		return UnspecifiedBeneficiaryType
	}
	return tag
}
