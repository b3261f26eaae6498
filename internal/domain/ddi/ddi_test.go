package ddi

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/KeyDDI-Intelligence/pkg/errors"
	ddit "github.com/turtacn/KeyDDI-Intelligence/pkg/types/ddi"
)

const interactionInfo = `interaction_type,sentence,subject,new_interaction_type
1,#Drug1 can cause a decrease in the absorption of #Drug2.,1,10
2,The metabolism of #Drug2 can be decreased when combined with #Drug1.,2,20
3,"#Drug1 may increase the QTc-prolonging activities of #Drug2, which is bad.",1,30
`

func TestLoadTemplates(t *testing.T) {
	tbl, err := LoadTemplates(strings.NewReader(interactionInfo))
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, []string{"1", "2", "3"}, tbl.Labels())

	tpl, ok := tbl.Lookup("2")
	require.True(t, ok)
	assert.Equal(t, "2", tpl.Subject)
	assert.Equal(t, "20", tpl.InteractionType)

	tpl, err = tbl.MustLookup("3")
	require.NoError(t, err)
	assert.Contains(t, tpl.Sentence, ", which is bad.")

	_, err = tbl.MustLookup("87")
	assert.True(t, errors.IsCode(err, errors.ErrCodeUnknownInteractionLabel))
	assert.False(t, errors.IsRecoverableError(err))
}

func TestLoadTemplates_Errors(t *testing.T) {
	_, err := LoadTemplates(strings.NewReader(""))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedRecord))

	_, err = LoadTemplates(strings.NewReader("h1,h2,h3,h4\n1,sentence,1\n"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedRecord))
}

func TestTemplateRender(t *testing.T) {
	tpl := InteractionTemplate{
		Label:    "2",
		Sentence: "The metabolism of #Drug2 can be decreased when combined with #Drug1.",
		Subject:  "2",
	}

	assert.Equal(t, "The metabolism of DB2 can be decreased when combined with DB1.",
		tpl.Render("DB1", "DB2", SubstituteLexical))
	assert.Equal(t, "The metabolism of DB1 can be decreased when combined with DB2.",
		tpl.Render("DB1", "DB2", SubstituteSubject))

	tpl.Subject = "1"
	assert.Equal(t, tpl.Render("DB1", "DB2", SubstituteLexical), tpl.Render("DB1", "DB2", SubstituteSubject))
}

func TestParseSubstitutionPolicy(t *testing.T) {
	p, err := ParseSubstitutionPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SubstituteLexical, p)

	p, err = ParseSubstitutionPolicy("subject")
	require.NoError(t, err)
	assert.Equal(t, SubstituteSubject, p)

	_, err = ParseSubstitutionPolicy("random")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

const knownDDI = "left\tright\ttype\n" +
	"DB03\tDB10\t10\n" +
	"DB01\tDB11\t10\n" +
	"DB03\tDB12\t10\n" +
	"DB05\tDB13\t20\n"

func TestLoadKnownDDI(t *testing.T) {
	idx, err := LoadKnownDDI(strings.NewReader(knownDDI))
	require.NoError(t, err)

	left, err := idx.Drugs("10", SideLeft)
	require.NoError(t, err)
	assert.Equal(t, []string{"DB01", "DB03"}, left)

	right, err := idx.Drugs("10", SideRight)
	require.NoError(t, err)
	assert.Equal(t, []string{"DB10", "DB11", "DB12"}, right)

	left, err = idx.Drugs("20", SideLeft)
	require.NoError(t, err)
	assert.NotEmpty(t, left)

	_, err = idx.Drugs("99", SideRight)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingKnownDDIRecords))
	assert.True(t, errors.IsRecoverableError(err))
	assert.Contains(t, err.Error(), "right-side")
}

func TestLoadKnownDDI_Malformed(t *testing.T) {
	_, err := LoadKnownDDI(strings.NewReader("h\th\th\nDB1\tDB2\n"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedRecord))

	idx, err := LoadKnownDDI(strings.NewReader(""))
	require.NoError(t, err)
	_, err = idx.Drugs("10", SideLeft)
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingKnownDDIRecords))
}

const drugInfo = "DB01\tAspirin\tx\tx\tx\tPTGS1\tx\tinhibitor\tyes\n" +
	"DB01\tAspirin\tx\tx\tx\tPTGS2\tx\tinhibitor\tyes\n" +
	"DB01\tAspirin\tx\tx\tx\tALB\tx\tNone\tyes\n" +
	"DB02\tOther\tx\tx\tx\tCYP3A4\tx\tsubstrate\tno\n" +
	"DB03\tThird\tx\tx\tx\tHTR2A\tx\tantagonist\tyes\n"

func TestLoadDrugTargets(t *testing.T) {
	targets, err := LoadDrugTargets(strings.NewReader(drugInfo))
	require.NoError(t, err)

	got, ok := targets.Targets("DB01")
	require.True(t, ok)
	assert.Equal(t, []string{"PTGS1", "PTGS2"}, got)

	_, ok = targets.Targets("DB02")
	assert.False(t, ok)

	ann, ok := targets.Annotation("DB01")
	require.True(t, ok)
	assert.Equal(t, "DB01(PTGS1|PTGS2)", ann)

	ann, ok = targets.Annotation("DB03")
	require.True(t, ok)
	assert.Equal(t, "DB03(HTR2A)", ann)

	_, err = LoadDrugTargets(strings.NewReader("DB01\tonly\tthree\n"))
	assert.True(t, errors.IsCode(err, errors.ErrCodeMalformedRecord))
}

func TestReadCandidates(t *testing.T) {
	input := "DB1\tCCO\tDB2\tCCN\textra\n" +
		"\n" +
		"DB3\tCCC\n" +
		"DB2\tCCN\tDB4\tc1ccccc1\n"
	report := ddit.NewStageReport("input")

	pairs, err := ReadCandidates(strings.NewReader(input), report)
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, ddit.CandidatePair{Drug1: "DB1", Structure1: "CCO", Drug2: "DB2", Structure2: "CCN", Line: 1}, pairs[0])
	assert.Equal(t, 4, pairs[1].Line)

	require.Len(t, report.Warnings, 1)
	assert.Equal(t, errors.ErrCodeMalformedRecord, report.Warnings[0].Code)
	assert.Equal(t, "line 3", report.Warnings[0].Subject)

	ids, structures := UniqueStructures(pairs)
	assert.Equal(t, []string{"DB1", "DB2", "DB4"}, ids)
	assert.Equal(t, "CCN", structures["DB2"])
}

//Personal.AI order the ending
