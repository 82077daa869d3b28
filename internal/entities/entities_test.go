package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lease = `This Lease Agreement (the "Agreement") is made on January 5, 2024 between Acme Holdings LLC (the "Landlord") and Mr. John Smith (the "Tenant").

Rent of $1,500.00 is due by 5:00 PM on the 1st of each month. Late fees under Section 4.2(a) apply.

This Agreement is governed by the laws of the State of New York and the Fair Housing Act. Payments made after 01/15/2024 incur a fee of $50. A second late payment also incurs $50.`

func TestExtract(t *testing.T) {
	got := Extract(lease)

	assert.Equal(t, []string{"Mr. John Smith"}, got["PERSON"])
	assert.Equal(t, []string{"Acme Holdings LLC"}, got["ORGANIZATION"])
	assert.Equal(t, []string{"January 5, 2024", "01/15/2024"}, got["DATE"])
	assert.Equal(t, []string{"Section 4.2(a)", "Fair Housing Act"}, got["LAW"])
	assert.Equal(t, []string{"State of New York"}, got["LOCATION"])
	assert.Equal(t, []string{"$1,500.00", "$50"}, got["MONEY"])
	assert.Equal(t, []string{"5:00 PM"}, got["TIME"])
	assert.Equal(t, []string{"Agreement", "Landlord", "Tenant"}, got["OTHER"])
}

func TestExtractAlwaysHasEveryCategory(t *testing.T) {
	got := Extract("nothing to see here")
	require.Len(t, got, len(Categories))
	for _, c := range Categories {
		v, ok := got[c]
		assert.True(t, ok, c)
		assert.NotNil(t, v, c)
		assert.Empty(t, v, c)
	}
}

func TestKeyTerms(t *testing.T) {
	text := "The tenant shall pay rent. Rent is due monthly; the tenant pays rent to the landlord. Landlord, landlord!"
	got := KeyTerms(text, 3)
	assert.Equal(t, []Term{{"landlord", 3}, {"rent", 3}, {"tenant", 2}}, got)

	all := KeyTerms(text, 0)
	assert.Len(t, all, 7)
	for _, term := range all {
		assert.NotEqual(t, "shall", term.Word)
		assert.NotEqual(t, "the", term.Word)
	}
}

func TestKeyTermsEmpty(t *testing.T) {
	assert.Empty(t, KeyTerms("", 10))
	assert.Empty(t, KeyTerms("a an of", 10))
}

func TestKeySentences(t *testing.T) {
	text := `The tenant pays rent to the landlord monthly. Rent is due on the first day.

The landlord keeps the deposit. Weather was nice yesterday! Rent and deposit are paid by the tenant to the landlord.`

	got := KeySentences(text, 2)
	assert.Equal(t, []string{
		"The tenant pays rent to the landlord monthly.",
		"Rent and deposit are paid by the tenant to the landlord.",
	}, got)

	assert.Len(t, KeySentences(text, 0), DefaultKeySentences)
	assert.Len(t, KeySentences(text, 50), 5)
}

func TestSplitSentencesSkipsRepeatsAndOverlap(t *testing.T) {
	got := splitSentences("Clause one. Clause one. Clause one tail end.\n\ntail end. Another point here.")
	assert.Equal(t, []string{"Clause one.", "Clause one tail end.", "Another point here."}, got)

	assert.Equal(t, []string{"Pay $1,200.00 by the 1st."}, splitSentences("Pay $1,200.00 by the 1st."))
}

func TestKeySentencesEmpty(t *testing.T) {
	assert.Nil(t, KeySentences("   \n\n ", 3))
}
