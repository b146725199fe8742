package preprocessor

// ---------------- Conditionals ----------------

// condStack holds one frame per open #if chain of a file, innermost last.
type condStack struct {
	stack []condFrame
}

type condFrame struct {
	parentActive bool
	taken        bool // some branch of the chain was selected
	active       bool
	elseSeen     bool
	open         Token // the #if, #ifdef or #ifndef token
}

func newCondStack() *condStack { return &condStack{} }

func (c *condStack) Active() bool {
	if len(c.stack) == 0 {
		return true
	}
	return c.stack[len(c.stack)-1].active
}

// Push opens a frame. cond is only consulted when the enclosing region
// is active; callers skip evaluating it otherwise.
func (c *condStack) Push(cond bool, open Token) {
	parent := c.Active()
	active := parent && cond
	c.stack = append(c.stack, condFrame{
		parentActive: parent,
		taken:        active, // if active, branch is taken
		active:       active,
		open:         open,
	})
}

// Elif switches to the next branch. cond is called only when the branch
// could still be selected.
func (c *condStack) Elif(tok Token, cond func() (bool, error)) error {
	if len(c.stack) == 0 {
		return errorf(UnmatchedEndif, tok, "#%s without #if", tok.Text)
	}
	top := &c.stack[len(c.stack)-1]
	if top.elseSeen {
		return errorf(ElifAfterElse, tok, "#%s after #else", tok.Text)
	}
	if !top.parentActive || top.taken {
		top.active = false
		return nil
	}
	v, err := cond()
	if err != nil {
		return err
	}
	top.active = v
	top.taken = v
	return nil
}

func (c *condStack) Else(tok Token) error {
	if len(c.stack) == 0 {
		return errorf(UnmatchedEndif, tok, "#else without #if")
	}
	top := &c.stack[len(c.stack)-1]
	if top.elseSeen {
		return errorf(DuplicateElse, tok, "#else after #else")
	}
	top.elseSeen = true
	if !top.parentActive {
		top.active = false
		return nil
	}
	top.active = !top.taken
	top.taken = true
	return nil
}

func (c *condStack) Pop(tok Token) error {
	if len(c.stack) == 0 {
		return errorf(UnmatchedEndif, tok, "#endif without #if")
	}
	c.stack = c.stack[:len(c.stack)-1]
	return nil
}

// Unclosed returns the opening directive of the innermost open frame.
func (c *condStack) Unclosed() (Token, bool) {
	if len(c.stack) == 0 {
		return Token{}, false
	}
	return c.stack[len(c.stack)-1].open, true
}
