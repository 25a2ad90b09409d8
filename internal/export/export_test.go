package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/obscurecore/eduscan/internal/institution"
)

var sample = []institution.Record{
	{
		ID:            "sch101",
		Type:          institution.TypeSchool,
		Number:        "101",
		StudentsCount: "520",
		District:      "Авиастроительный",
		URL:           "https://edu.tatar.ru/avia/sch101.htm",
	},
	{
		ID:            "kg7",
		Type:          institution.TypeKindergarten,
		Number:        "7",
		StudentsCount: "28",
		District:      "Советский",
		URL:           "https://edu.tatar.ru/sovetcki/kg7.htm",
	},
}

func TestTextListsEveryField(t *testing.T) {
	t.Parallel()

	got := Text(sample)
	assert.Contains(t, got, "• ID: sch101")
	assert.Contains(t, got, "• Тип: Детский сад")
	assert.Contains(t, got, "• Номер: 101")
	assert.Contains(t, got, "• Количество учащихся: 28")
	assert.Contains(t, got, "• Район: Советский")
	assert.Contains(t, got, "• Ссылка: https://edu.tatar.ru/avia/sch101.htm")
}

func TestTextEmptyCatalog(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Нет данных об образовательных учреждениях.\n", Text(nil))
}

func TestExcelRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := Excel(sample)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"ID", "Тип", "Номер", "Количество учащихся", "Район", "Ссылка"}, rows[0])
	assert.Equal(t, []string{"sch101", "Школа", "101", "520", "Авиастроительный", "https://edu.tatar.ru/avia/sch101.htm"}, rows[1])
	assert.Equal(t, "kg7", rows[2][0])
}

func TestExcelEmptyCatalogHasHeaderOnly(t *testing.T) {
	t.Parallel()

	data, err := Excel(nil)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
