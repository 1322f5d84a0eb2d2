// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package diag

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietBag() *Bag {
	log := logrus.New()
	log.SetOutput(discardWriter{})
	return NewBag(log)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// Warnings never gate stage progression; only errors do.
func TestWarningsDoNotCountAsErrors(t *testing.T) {
	b := quietBag()
	b.Warnf(Semantic, "a.c", 1, 1, "pointer types differ")
	assert.Equal(t, 0, b.Errors())
	assert.Equal(t, 1, b.Warnings())
}

func TestErrorfIncrementsErrorCount(t *testing.T) {
	b := quietBag()
	b.Errorf(Syntactic, "a.c", 3, 5, "unexpected token %q", ")")
	require.Equal(t, 1, b.Errors())
	assert.Equal(t, "a.c:3:5 [ERROR] unexpected token \")\"", b.All()[0].String())
}

func TestMergeAppendsDiagnosticsInOrder(t *testing.T) {
	main := quietBag()
	main.Errorf(Semantic, "a.c", 1, 1, "first")
	sub := quietBag()
	sub.Errorf(Semantic, "a.c", 2, 1, "second")
	main.Merge(sub)
	require.Len(t, main.All(), 2)
	assert.Equal(t, "first", main.All()[0].Message)
	assert.Equal(t, "second", main.All()[1].Message)
	assert.Equal(t, 2, main.Errors())
}

func TestICEPanicsWithICEError(t *testing.T) {
	defer func() {
		r := recover()
		require.NotNil(t, r)
		err, ok := r.(*ICEError)
		require.True(t, ok)
		assert.Contains(t, err.Error(), "internal compiler error")
		assert.Contains(t, err.Error(), "bad offset 4")
	}()
	ICE("bad offset %d", 4)
}

func TestNewBagDefaultsToStandardLoggerWhenNil(t *testing.T) {
	b := NewBag(nil)
	assert.Equal(t, logrus.StandardLogger(), b.Log)
}
