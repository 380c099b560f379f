package ir

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// Parse reads a type in the syntax printed by Ty.String
func Parse(src string) (Ty, error) {
	p := &parser{src: src}
	t, err := p.ty()
	if err != nil {
		return nil, err
	}
	return t, p.end()
}

// ParseLifetime reads a lifetime in the syntax printed by Lifetime.String
func ParseLifetime(src string) (Lifetime, error) {
	p := &parser{src: src}
	l, err := p.lifetime()
	if err != nil {
		return nil, err
	}
	return l, p.end()
}

// ParseParameter reads either a lifetime (starting with ') or a type
func ParseParameter(src string) (Parameter, error) {
	p := &parser{src: src}
	param, err := p.parameter()
	if err != nil {
		return Parameter{}, err
	}
	return param, p.end()
}

// ParseParameterKind reads `ty@U` or `lt@U`; the universe defaults to Root when omitted
func ParseParameterKind(src string) (ParameterKind, error) {
	kindName, universe, hasUniverse := strings.Cut(strings.TrimSpace(src), "@")
	var pk ParameterKind
	switch kindName {
	case "ty":
		pk.Kind = KindTy
	case "lt":
		pk.Kind = KindLifetime
	default:
		return pk, errors.Errorf("unknown parameter kind %q, expected ty or lt", kindName)
	}
	if !hasUniverse {
		return pk, nil
	}
	ui, err := strconv.ParseUint(universe, 10, 32)
	if err != nil {
		return pk, errors.Wrapf(err, "invalid universe in %q", src)
	}
	pk.Universe = UniverseIndex(ui)
	return pk, nil
}

// MustParse is Parse for terms known to be well-formed, such as test fixtures
func MustParse(src string) Ty {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	src string
	pos int
	// binders counts the lifetimes bound by the enclosing for<N> types
	binders int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && unicode.IsSpace(rune(p.src[p.pos])) {
		p.pos++
	}
}

func (p *parser) peek() byte {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Errorf("%q at offset %d: "+format, append([]any{p.src, p.pos}, args...)...)
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return p.errorf("expected %q", c)
	}
	p.pos++
	return nil
}

func (p *parser) end() error {
	if p.peek() != 0 {
		return p.errorf("unexpected trailing input")
	}
	return nil
}

func (p *parser) number() (int, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected a number")
	}
	return strconv.Atoi(p.src[start:p.pos])
}

func isIdentChar(c byte, first bool) bool {
	if c == '_' || unicode.IsLetter(rune(c)) {
		return true
	}
	return !first && (c >= '0' && c <= '9' || c == ':')
}

func (p *parser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos], p.pos == start) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *parser) placeholder() (PlaceholderIndex, error) {
	if err := p.expect('!'); err != nil {
		return PlaceholderIndex{}, err
	}
	universe, err := p.number()
	if err != nil {
		return PlaceholderIndex{}, err
	}
	if uint64(universe) > math.MaxUint32 {
		return PlaceholderIndex{}, p.errorf("universe %d out of range", universe)
	}
	if err := p.expect('.'); err != nil {
		return PlaceholderIndex{}, err
	}
	idx, err := p.number()
	if err != nil {
		return PlaceholderIndex{}, err
	}
	return PlaceholderIndex{Universe: UniverseIndex(universe), Idx: idx}, nil
}

func (p *parser) parameter() (Parameter, error) {
	if p.peek() == '\'' {
		l, err := p.lifetime()
		return Parameter{Lifetime: l}, err
	}
	t, err := p.ty()
	return Parameter{Ty: t}, err
}

func (p *parser) lifetime() (Lifetime, error) {
	if err := p.expect('\''); err != nil {
		return nil, err
	}
	switch p.peek() {
	case '?':
		p.pos++
		depth, err := p.number()
		if err != nil {
			return nil, err
		}
		return LifetimeVar{Depth: depth}, nil
	case '!':
		placeholder, err := p.placeholder()
		if err != nil {
			return nil, err
		}
		return PlaceholderLifetime{Placeholder: placeholder}, nil
	default:
		return nil, p.errorf("expected '? or '! lifetime")
	}
}

func (p *parser) ty() (Ty, error) {
	switch c := p.peek(); {
	case c == '?':
		p.pos++
		depth, err := p.number()
		if err != nil {
			return nil, err
		}
		if depth < p.binders {
			return nil, p.errorf("?%d is bound by for<>, which binds only lifetimes", depth)
		}
		return TyVar{Depth: depth}, nil
	case c == '!':
		placeholder, err := p.placeholder()
		if err != nil {
			return nil, err
		}
		params, err := p.optionalParameters()
		if err != nil {
			return nil, err
		}
		return ApplyTy{Name: placeholder, Parameters: params}, nil
	case c != 0 && isIdentChar(c, true):
		name := p.ident()
		if name == "for" {
			return p.forAll()
		}
		params, err := p.optionalParameters()
		if err != nil {
			return nil, err
		}
		if strings.Contains(name, "::") {
			return ProjectionTy{AssociatedTy: ItemName(name), Parameters: params}, nil
		}
		return ApplyTy{Name: ItemName(name), Parameters: params}, nil
	default:
		return nil, p.errorf("expected a type")
	}
}

func (p *parser) forAll() (Ty, error) {
	if err := p.expect('<'); err != nil {
		return nil, err
	}
	binders, err := p.number()
	if err != nil {
		return nil, err
	}
	if err := p.expect('>'); err != nil {
		return nil, err
	}
	p.binders += binders
	body, err := p.ty()
	p.binders -= binders
	if err != nil {
		return nil, err
	}
	return ForAllTy{NumBinders: binders, Ty: body}, nil
}

func (p *parser) optionalParameters() (Parameters, error) {
	if p.peek() != '<' {
		return nil, nil
	}
	p.pos++
	if p.peek() == '>' {
		p.pos++
		return nil, nil
	}
	var params Parameters
	for {
		param, err := p.parameter()
		if err != nil {
			return nil, err
		}
		params = append(params, param)
		switch p.peek() {
		case ',':
			p.pos++
		case '>':
			p.pos++
			return params, nil
		default:
			return nil, p.errorf("expected ',' or '>'")
		}
	}
}
