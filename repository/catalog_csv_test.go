package repository

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/pharmacy-agent/models"
)

func TestReadProductsCSV(t *testing.T) {
	in := "name,stock,price,requires_prescription\n" +
		"ParacetamolXL,10,5,false\n" +
		"\"Amoxicillin 500\", 4, 12.5, true\n"

	products, err := ReadProductsCSV(strings.NewReader(in))

	require.NoError(t, err)
	assert.Equal(t, []models.Product{
		{Name: "ParacetamolXL", Stock: 10, UnitPrice: 5},
		{Name: "Amoxicillin 500", Stock: 4, UnitPrice: 12.5, RequiresPrescription: true},
	}, products)
}

func TestReadProductsCSV_ColumnOrderFollowsHeader(t *testing.T) {
	in := "price,name,requires_prescription,stock\n2.5,Cetirizine,false,7\n"

	products, err := ReadProductsCSV(strings.NewReader(in))

	require.NoError(t, err)
	assert.Equal(t, models.Product{Name: "Cetirizine", Stock: 7, UnitPrice: 2.5}, products[0])
}

func TestReadProductsCSV_Errors(t *testing.T) {
	tests := map[string]string{
		"empty":          "",
		"missing column": "name,stock,price\nX,1,1\n",
		"bad stock":      "name,stock,price,requires_prescription\nX,-1,1,false\n",
		"bad price":      "name,stock,price,requires_prescription\nX,1,abc,false\n",
		"bad flag":       "name,stock,price,requires_prescription\nX,1,1,maybe\n",
		"blank name":     "name,stock,price,requires_prescription\n!!,1,1,false\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadProductsCSV(strings.NewReader(in))
			assert.Error(t, err)
		})
	}
}
