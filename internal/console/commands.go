package console

// command describes one console verb. args is the exact argument count;
// -1 accepts zero or more.
type command struct {
	verb  string
	args  int
	usage string
}

// Allow list of console verbs, in HELP order.
var commands = []command{
	{"SET", 2, "SET x y          mark cell (x,y) occupied"},
	{"GET", 2, "GET x y          print 1 if cell (x,y) is occupied, else 0"},
	{"FLUSH", 0, "FLUSH            clear every cell"},
	{"EMPTY", 0, "EMPTY            print true if no cell is occupied"},
	{"SHIFT", 3, "SHIFT dx dy deg  translate by (dx,dy) then rotate about the center"},
	{"COUNT", 0, "COUNT            print the number of occupied cells"},
	{"CELLS", 0, "CELLS            print occupied cells, one x y pair per line"},
	{"PRINT", 0, "PRINT            draw the grid"},
	{"SNAPSHOT", -1, "SNAPSHOT [why]   save the grid to the snapshot store"},
	{"HELP", 0, "HELP             list commands"},
}

func lookupCommand(verb string) (command, bool) {
	for _, c := range commands {
		if c.verb == verb {
			return c, true
		}
	}
	return command{}, false
}
