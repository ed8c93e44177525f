package slots

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSectors(t *testing.T) {
	input := "1 : 1,2,3\n2: 4, 5 ,6\n\nthree: 7\n4 : 13\n"
	sectors, report, err := ParseSectors(strings.NewReader(input), 12)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Applied)
	require.Len(t, report.Rejected, 2)
	assert.Equal(t, 4, report.Rejected[0].Line)
	assert.Equal(t, 5, report.Rejected[1].Line)

	assert.Equal(t, []int{0, 1, 2}, sectors[1])
	assert.Equal(t, []int{3, 4, 5}, sectors[2])
	assert.Equal(t, []int{1, 2}, sectors.IDs())

	id, ok := sectors.SectorOf(4)
	require.True(t, ok)
	assert.Equal(t, 2, id)
	_, ok = sectors.SectorOf(11)
	assert.False(t, ok)
}
