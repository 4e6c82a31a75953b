package contentstream

import (
	"errors"
	"io"

	"github.com/wudi/redactkit/coords"
	"github.com/wudi/redactkit/document"
	"github.com/wudi/redactkit/observability"
)

// Config controls a parse pass.
type Config struct {
	// Resources supplies the page's declared fonts and XObjects; nil is
	// tolerated (bounds fall back to default metrics, Do passes through).
	Resources *document.Resources
	// Logger receives the non-fatal conditions (stack underflow,
	// unsupported constructs). Nil means no logging.
	Logger observability.Logger
	// ShapedMetrics enables go-text/typesetting advances for fonts that
	// embed a font program. Off by default; the width-table approximation
	// is the documented contract.
	ShapedMetrics bool
}

// Parse tokenizes data and runs the state-tracking pass, returning one
// Operation per operator in source order. Malformed input yields a
// *ParseError and no operations.
func Parse(data []byte, cfg Config) ([]Operation, error) {
	log := cfg.Logger
	if log == nil {
		log = observability.NopLogger{}
	}
	p := &parser{
		lx:    NewLexer(data),
		data:  data,
		cfg:   cfg,
		log:   log,
		gs:    GraphicsState{CTM: coords.Identity()},
		ts:    newTextState(),
	}
	if err := p.run(); err != nil {
		return nil, err
	}
	return p.ops, nil
}

type parser struct {
	lx   *Lexer
	data []byte
	cfg  Config
	log  observability.Logger

	gs    GraphicsState
	stack []GraphicsState
	ts    TextState

	path []coords.Point

	operands []Operand
	ops      []Operation
}

func (p *parser) run() error {
	for {
		tok, err := p.lx.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return err
		}
		switch tok.Type {
		case TokenInteger:
			p.operands = append(p.operands, NumberOperand{Value: float64(tok.Value.(int64))})
		case TokenReal:
			p.operands = append(p.operands, NumberOperand{Value: tok.Value.(float64)})
		case TokenString:
			p.operands = append(p.operands, StringOperand{Value: tok.Value.([]byte)})
		case TokenName:
			p.operands = append(p.operands, NameOperand{Value: tok.Value.(string)})
		case TokenArrayStart:
			arr, err := p.parseArray()
			if err != nil {
				return err
			}
			p.operands = append(p.operands, arr)
		case TokenDictStart:
			dict, err := p.parseDict()
			if err != nil {
				return err
			}
			p.operands = append(p.operands, dict)
		case TokenArrayEnd:
			return &ParseError{Pos: tok.Pos, Msg: "unbalanced ']'"}
		case TokenDictEnd:
			return &ParseError{Pos: tok.Pos, Msg: "unbalanced '>>'"}
		case TokenOperator:
			if err := p.dispatch(tok); err != nil {
				return err
			}
			p.operands = p.operands[:0]
		}
	}
	if len(p.operands) > 0 {
		return &ParseError{Pos: p.lx.Pos(), Msg: "dangling operands at end of stream"}
	}
	return nil
}

func (p *parser) parseArray() (ArrayOperand, error) {
	var arr ArrayOperand
	for {
		tok, err := p.lx.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return arr, &ParseError{Pos: p.lx.Pos(), Msg: "unterminated array"}
			}
			return arr, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenInteger:
			arr.Values = append(arr.Values, NumberOperand{Value: float64(tok.Value.(int64))})
		case TokenReal:
			arr.Values = append(arr.Values, NumberOperand{Value: tok.Value.(float64)})
		case TokenString:
			arr.Values = append(arr.Values, StringOperand{Value: tok.Value.([]byte)})
		case TokenName:
			arr.Values = append(arr.Values, NameOperand{Value: tok.Value.(string)})
		case TokenArrayStart:
			inner, err := p.parseArray()
			if err != nil {
				return arr, err
			}
			arr.Values = append(arr.Values, inner)
		case TokenDictStart:
			inner, err := p.parseDict()
			if err != nil {
				return arr, err
			}
			arr.Values = append(arr.Values, inner)
		case TokenOperator:
			kw := tok.Value.(string)
			if !isKeywordLiteral(kw) {
				return arr, &ParseError{Pos: tok.Pos, Msg: "unexpected token in array"}
			}
			arr.Values = append(arr.Values, KeywordOperand{Value: kw})
		default:
			return arr, &ParseError{Pos: tok.Pos, Msg: "unexpected token in array"}
		}
	}
}

func (p *parser) parseDict() (DictOperand, error) {
	dict := DictOperand{Values: make(map[string]Operand)}
	for {
		tok, err := p.lx.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return dict, &ParseError{Pos: p.lx.Pos(), Msg: "unterminated dictionary"}
			}
			return dict, err
		}
		if tok.Type == TokenDictEnd {
			return dict, nil
		}
		if tok.Type != TokenName {
			return dict, &ParseError{Pos: tok.Pos, Msg: "dictionary key must be a name"}
		}
		key := tok.Value.(string)
		val, err := p.parseDictValue()
		if err != nil {
			return dict, err
		}
		if _, dup := dict.Values[key]; !dup {
			dict.Keys = append(dict.Keys, key)
		}
		dict.Values[key] = val
	}
}

func (p *parser) parseDictValue() (Operand, error) {
	tok, err := p.lx.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Pos: p.lx.Pos(), Msg: "unterminated dictionary"}
		}
		return nil, err
	}
	switch tok.Type {
	case TokenInteger:
		return NumberOperand{Value: float64(tok.Value.(int64))}, nil
	case TokenReal:
		return NumberOperand{Value: tok.Value.(float64)}, nil
	case TokenString:
		return StringOperand{Value: tok.Value.([]byte)}, nil
	case TokenName:
		return NameOperand{Value: tok.Value.(string)}, nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	case TokenOperator:
		kw := tok.Value.(string)
		if !isKeywordLiteral(kw) {
			return nil, &ParseError{Pos: tok.Pos, Msg: "unexpected keyword as dictionary value"}
		}
		return KeywordOperand{Value: kw}, nil
	default:
		return nil, &ParseError{Pos: tok.Pos, Msg: "unexpected token as dictionary value"}
	}
}

// isKeywordLiteral reports whether kw is one of the bare literal values
// allowed inside array and dictionary operands.
func isKeywordLiteral(kw string) bool {
	switch kw {
	case "true", "false", "null":
		return true
	}
	return false
}

// emit appends an operation carrying the collected operands.
func (p *parser) emit(op Operation) {
	if op.Operands == nil {
		op.Operands = append([]Operand(nil), p.operands...)
	}
	p.ops = append(p.ops, op)
}

// generic preserves the operator verbatim; Generic operations are never
// candidates for removal.
func (p *parser) generic(operator string) {
	p.emit(Operation{Kind: OpGeneric, Operator: operator})
}

func (p *parser) dispatch(tok Token) error {
	keyword := tok.Value.(string)

	// Inline images carry a binary payload the lexer cannot tokenize;
	// the whole BI..EI span is preserved verbatim and never filtered.
	if keyword == "BI" {
		end, err := p.lx.CaptureThrough("EI")
		if err != nil {
			return err
		}
		p.log.Warn("unsupported inline image preserved",
			observability.Int("offset", tok.Pos))
		p.emit(Operation{
			Kind:        OpGeneric,
			Operator:    "BI",
			Raw:         append([]byte(nil), p.data[tok.Pos:end]...),
			Unsupported: true,
		})
		return nil
	}

	kind := KindOf(keyword)
	if kind != OpGeneric && !p.arityOK(kind) {
		p.log.Warn("operator with unexpected operand count preserved verbatim",
			observability.String("operator", keyword),
			observability.Int("operands", len(p.operands)))
		p.generic(keyword)
		return nil
	}

	switch kind {
	case OpGeneric:
		p.generic(keyword)

	// Graphics state.
	case OpSaveState:
		p.stack = append(p.stack, p.gs)
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpRestoreState:
		if n := len(p.stack); n > 0 {
			p.gs = p.stack[n-1]
			p.stack = p.stack[:n-1]
		} else {
			p.log.Warn("state stack underflow", observability.Int("offset", tok.Pos))
		}
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpConcatMatrix:
		m := p.operandMatrix()
		p.gs.CTM = m.Multiply(p.gs.CTM)
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetLineWidth:
		p.gs.LineWidth = operandFloat(p.operands[0])
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetStrokeGray, OpSetFillGray, OpSetStrokeRGB, OpSetFillRGB, OpSetStrokeCMYK, OpSetFillCMYK:
		p.setColor(kind)
		p.emit(Operation{Kind: kind, Operator: keyword})

	// Text objects and state.
	case OpBeginText:
		p.ts = newTextState()
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpEndText:
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetFont:
		if name, ok := operandName(p.operands[0]); ok {
			p.ts.FontName = name
			p.ts.Font = nil
			if p.cfg.Resources != nil && p.cfg.Resources.Fonts != nil {
				p.ts.Font = p.cfg.Resources.Fonts[name]
			}
		}
		p.ts.FontSize = operandFloat(p.operands[1])
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetCharSpacing:
		p.ts.CharSpacing = operandFloat(p.operands[0])
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetWordSpacing:
		p.ts.WordSpacing = operandFloat(p.operands[0])
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetHorizScale:
		p.ts.HorizScale = operandFloat(p.operands[0])
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetLeading:
		p.ts.Leading = operandFloat(p.operands[0])
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetRise:
		p.ts.Rise = operandFloat(p.operands[0])
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpMoveText:
		p.moveText(operandFloat(p.operands[0]), operandFloat(p.operands[1]))
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpMoveTextSetLeading:
		ty := operandFloat(p.operands[1])
		p.ts.Leading = -ty
		p.moveText(operandFloat(p.operands[0]), ty)
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpSetTextMatrix:
		p.ts.Tlm = p.operandMatrix()
		p.ts.Tm = p.ts.Tlm
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpNextLine:
		p.nextLine()
		p.emit(Operation{Kind: kind, Operator: keyword})

	// Text showing.
	case OpShowText:
		p.showText(kind, keyword, p.itemsFromString(p.operands[0]))
	case OpShowTextArray:
		p.showText(kind, keyword, p.itemsFromArray(p.operands[0]))
	case OpNextLineShow:
		p.nextLine()
		p.showText(kind, keyword, p.itemsFromString(p.operands[0]))
	case OpSetSpacingNextLineShow:
		p.ts.WordSpacing = operandFloat(p.operands[0])
		p.ts.CharSpacing = operandFloat(p.operands[1])
		p.nextLine()
		p.showText(kind, keyword, p.itemsFromString(p.operands[2]))

	// Path construction.
	case OpMoveTo, OpLineTo:
		p.segment(kind, keyword, []coords.Point{{X: operandFloat(p.operands[0]), Y: operandFloat(p.operands[1])}})
	case OpCurveTo:
		p.segment(kind, keyword, []coords.Point{
			{X: operandFloat(p.operands[0]), Y: operandFloat(p.operands[1])},
			{X: operandFloat(p.operands[2]), Y: operandFloat(p.operands[3])},
			{X: operandFloat(p.operands[4]), Y: operandFloat(p.operands[5])},
		})
	case OpCurveToV, OpCurveToY:
		p.segment(kind, keyword, []coords.Point{
			{X: operandFloat(p.operands[0]), Y: operandFloat(p.operands[1])},
			{X: operandFloat(p.operands[2]), Y: operandFloat(p.operands[3])},
		})
	case OpClosePath:
		p.emit(Operation{Kind: kind, Operator: keyword})
	case OpRectangle:
		x := operandFloat(p.operands[0])
		y := operandFloat(p.operands[1])
		w := operandFloat(p.operands[2])
		h := operandFloat(p.operands[3])
		p.segment(kind, keyword, []coords.Point{
			{X: x, Y: y}, {X: x + w, Y: y}, {X: x, Y: y + h}, {X: x + w, Y: y + h},
		})

	// Path painting.
	case OpStroke, OpCloseStroke, OpFill, OpFillEvenOdd, OpFillStroke,
		OpFillStrokeEvenOdd, OpCloseFillStroke, OpCloseFillStrokeEvenOdd, OpEndPath:
		box, ok := pathBounds(p.path)
		p.path = p.path[:0]
		p.emit(Operation{Kind: kind, Operator: keyword, BBox: box, HasBBox: ok && kind != OpEndPath})

	// External objects.
	case OpXObject:
		p.xobject(tok, keyword)
	}
	return nil
}

// arity is the exact operand count each recognized operator requires.
var arity = map[OpKind]int{
	OpSaveState: 0, OpRestoreState: 0, OpConcatMatrix: 6, OpSetLineWidth: 1,
	OpSetStrokeGray: 1, OpSetFillGray: 1, OpSetStrokeRGB: 3, OpSetFillRGB: 3,
	OpSetStrokeCMYK: 4, OpSetFillCMYK: 4,
	OpBeginText: 0, OpEndText: 0, OpSetFont: 2,
	OpSetCharSpacing: 1, OpSetWordSpacing: 1, OpSetHorizScale: 1, OpSetLeading: 1, OpSetRise: 1,
	OpMoveText: 2, OpMoveTextSetLeading: 2, OpSetTextMatrix: 6, OpNextLine: 0,
	OpShowText: 1, OpShowTextArray: 1, OpNextLineShow: 1, OpSetSpacingNextLineShow: 3,
	OpMoveTo: 2, OpLineTo: 2, OpCurveTo: 6, OpCurveToV: 4, OpCurveToY: 4,
	OpClosePath: 0, OpRectangle: 4,
	OpStroke: 0, OpCloseStroke: 0, OpFill: 0, OpFillEvenOdd: 0, OpFillStroke: 0,
	OpFillStrokeEvenOdd: 0, OpCloseFillStroke: 0, OpCloseFillStrokeEvenOdd: 0, OpEndPath: 0,
	OpXObject: 1,
}

func (p *parser) arityOK(kind OpKind) bool {
	return len(p.operands) == arity[kind]
}

func (p *parser) operandMatrix() coords.Matrix {
	return coords.Matrix{
		operandFloat(p.operands[0]), operandFloat(p.operands[1]),
		operandFloat(p.operands[2]), operandFloat(p.operands[3]),
		operandFloat(p.operands[4]), operandFloat(p.operands[5]),
	}
}

func (p *parser) setColor(kind OpKind) {
	var c Color
	c.N = len(p.operands)
	for i := range p.operands {
		c.Components[i] = operandFloat(p.operands[i])
	}
	switch kind {
	case OpSetStrokeGray, OpSetStrokeRGB, OpSetStrokeCMYK:
		p.gs.StrokeColor = c
	default:
		p.gs.FillColor = c
	}
}

func (p *parser) moveText(tx, ty float64) {
	p.ts.Tlm = coords.Translate(tx, ty).Multiply(p.ts.Tlm)
	p.ts.Tm = p.ts.Tlm
}

func (p *parser) nextLine() {
	p.moveText(0, -p.ts.Leading)
}

func (p *parser) itemsFromString(op Operand) []tjItem {
	if s, ok := op.(StringOperand); ok {
		return []tjItem{{raw: s.Value}}
	}
	return nil
}

func (p *parser) itemsFromArray(op Operand) []tjItem {
	arr, ok := op.(ArrayOperand)
	if !ok {
		return nil
	}
	items := make([]tjItem, 0, len(arr.Values))
	for _, v := range arr.Values {
		switch e := v.(type) {
		case StringOperand:
			items = append(items, tjItem{raw: e.Value})
		case NumberOperand:
			items = append(items, tjItem{kern: e.Value, isKern: true})
		}
	}
	return items
}

func (p *parser) showText(kind OpKind, keyword string, items []tjItem) {
	m := measureRun(&p.ts, &p.gs, items, p.cfg.ShapedMetrics)
	snap := &TextSnapshot{
		FontName:    p.ts.FontName,
		FontSize:    p.ts.FontSize,
		Font:        p.ts.Font,
		Tm:          p.ts.Tm,
		Tlm:         p.ts.Tlm,
		CTM:         p.gs.CTM,
		CharSpacing: p.ts.CharSpacing,
		WordSpacing: p.ts.WordSpacing,
		HorizScale:  p.ts.HorizScale,
		Rise:        p.ts.Rise,
		Raw:         m.raw,
		Glyphs:      m.glyphs,
	}
	p.emit(Operation{Kind: kind, Operator: keyword, BBox: m.box, HasBBox: true, Text: snap})
	// Showing text displaces the text matrix by the run width.
	p.ts.Tm = coords.Translate(m.width, 0).Multiply(p.ts.Tm)
}

func (p *parser) segment(kind OpKind, keyword string, userPoints []coords.Point) {
	pts := make([]coords.Point, len(userPoints))
	for i, up := range userPoints {
		pts[i] = p.gs.CTM.Transform(up)
	}
	p.path = append(p.path, pts...)
	box, ok := pathBounds(pts)
	p.emit(Operation{Kind: kind, Operator: keyword, BBox: box, HasBBox: ok})
}

func (p *parser) xobject(tok Token, keyword string) {
	name, ok := operandName(p.operands[0])
	if !ok {
		p.generic(keyword)
		return
	}
	var xobj document.XObject
	var known bool
	if p.cfg.Resources != nil && p.cfg.Resources.XObjects != nil {
		xobj, known = p.cfg.Resources.XObjects[name]
	}
	switch {
	case known && xobj.Subtype == "Image":
		p.emit(Operation{Kind: OpXObject, Operator: keyword, BBox: imageBounds(p.gs.CTM), HasBBox: true})
	case known && xobj.Subtype == "Form":
		// Nested reusable content blocks are not descended into; the
		// reference is preserved and its content cannot be redacted here.
		p.log.Warn("unsupported form xobject preserved",
			observability.String("name", name),
			observability.Int("offset", tok.Pos))
		p.emit(Operation{Kind: OpGeneric, Operator: keyword, Unsupported: true})
	default:
		p.log.Debug("xobject not declared in resources, preserved",
			observability.String("name", name))
		p.generic(keyword)
	}
}
