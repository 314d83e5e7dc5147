package vocab

// Encoder translates between terms and codes using a fixed Dictionary.
// Terms must already be normalized; the encoder compares them verbatim.
type Encoder struct {
	dict *Dictionary
}

func NewEncoder(d *Dictionary) *Encoder {
	return &Encoder{dict: d}
}

// Dictionary returns the dictionary the encoder was built with.
func (e *Encoder) Dictionary() *Dictionary { return e.dict }

// LookupCode returns the code of term, or the OOV code when term is unknown.
func (e *Encoder) LookupCode(term string) Code {
	if c, ok := e.dict.Code(term); ok {
		return c
	}
	return e.dict.OOV()
}

// LookupTerm returns the term for code. The OOV code and unassigned codes
// yield a *CodeNotFoundError.
func (e *Encoder) LookupTerm(code Code) (string, error) {
	t, ok := e.dict.Term(code)
	if !ok {
		return "", &CodeNotFoundError{Code: code}
	}
	return t, nil
}

// Encode converts terms to codes, preserving order and length.
func (e *Encoder) Encode(terms []string) []Code {
	codes := make([]Code, len(terms))
	for i, t := range terms {
		codes[i] = e.LookupCode(t)
	}
	return codes
}

// Decode converts codes back to terms, failing on the first code without
// a term.
func (e *Encoder) Decode(codes []Code) ([]string, error) {
	terms := make([]string, len(codes))
	for i, c := range codes {
		t, err := e.LookupTerm(c)
		if err != nil {
			return nil, err
		}
		terms[i] = t
	}
	return terms, nil
}
