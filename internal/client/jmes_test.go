package client

import "github.com/jmespath/go-jmespath"

func (s *ClientTestSuite) TestEvalAny() {
	obj := map[string]any{
		"data": []any{
			map[string]any{"name": "reader"},
			map[string]any{"name": ""},
			map[string]any{"name": 42},
			map[string]any{"name": "writer"},
		},
		"after": nil,
	}

	v, err := evalAny(roleAfter, obj)
	s.NoError(err)
	s.Nil(v)

	v, err = evalAny(jmespath.MustCompile("nonexistent"), obj)
	s.NoError(err)
	s.Nil(v)

	v, err = evalAny(jmespath.MustCompile("length(data)"), obj)
	s.NoError(err)
	s.Equal(float64(4), v)
}

func (s *ClientTestSuite) TestEvalStrings() {
	names, err := evalStrings(roleNames, map[string]any{
		"data": []any{
			map[string]any{"name": "reader"},
			map[string]any{"name": ""},
			map[string]any{"name": 42},
			map[string]any{"name": "writer"},
		},
	})
	s.NoError(err)
	s.Equal([]string{"reader", "writer"}, names)

	names, err = evalStrings(roleNames, map[string]any{"data": "not a list"})
	s.NoError(err)
	s.Empty(names)
}
