package store

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashrajoria/webook/models"
)

func seededState() State {
	s := NewState()
	s.User = &models.User{ID: 7, Name: "Reader", Email: "reader@x.com", Role: models.RoleUser}
	s.Books = []models.Book{
		{ID: 3, Title: "Dune", Author: "Herbert", Price: decimal.RequireFromString("10.00"), Stocks: 5},
		{ID: 2, Title: "Emma", Author: "Austen", Price: decimal.RequireFromString("4.50"), Stocks: 0},
		{ID: 1, Title: "Dracula", Author: "Stoker", Price: decimal.RequireFromString("7.25"), Stocks: 12},
	}
	s.Cart = []models.CartLine{models.LineFromBook(7, s.Books[2], 2)}
	return s
}

func assertStagingInvariant(t *testing.T, s State) {
	t.Helper()
	for id, v := range s.PendingStocks {
		book, ok := s.Book(id)
		require.True(t, ok, "pending stock for unknown book %d", id)
		assert.GreaterOrEqual(t, v, 0)
		assert.NotEqual(t, book.Stocks, v, "pending stock for book %d equals confirmed", id)
	}
	for id, v := range s.PendingUserCart {
		book, ok := s.Book(id)
		require.True(t, ok, "pending cart for unknown book %d", id)
		assert.GreaterOrEqual(t, v, 0)
		assert.LessOrEqual(t, v, book.Stocks)
		assert.NotEqual(t, s.CartQuantity(id), v, "pending cart for book %d equals confirmed", id)
	}
}

func TestProposeCartQuantity_ClampsAndCollapses(t *testing.T) {
	s := seededState()

	s = ProposeCartQuantity(s, 3, 7)
	assert.Equal(t, 5, s.PendingUserCart[3])
	assert.Equal(t, 5, s.DisplayedCartQuantity(3))

	s = ProposeCartQuantity(s, 3, -3)
	_, ok := s.PendingUserCart[3]
	assert.False(t, ok)
	assert.Equal(t, 0, s.DisplayedCartQuantity(3))
	assert.Equal(t, 0, s.PendingCartCount())
}

func TestProposeCartQuantity_OutOfStockBook(t *testing.T) {
	s := ProposeCartQuantity(seededState(), 2, 4)
	assert.Empty(t, s.PendingUserCart)
}

func TestProposeStock(t *testing.T) {
	s := seededState()

	s = ProposeStock(s, 3, -4)
	assert.Equal(t, 0, s.PendingStocks[3])

	s = ProposeStock(s, 3, 5)
	assert.Empty(t, s.PendingStocks)

	s = ProposeStock(s, 99, 10)
	assert.Empty(t, s.PendingStocks)
}

func TestAdjust_UsesDisplayedValue(t *testing.T) {
	s := seededState()

	s = AdjustStock(s, 1, 3)
	s = AdjustStock(s, 1, 3)
	assert.Equal(t, 18, s.DisplayedStock(1))

	s = AdjustCartQuantity(s, 1, 1)
	assert.Equal(t, 3, s.PendingUserCart[1])
	s = AdjustCartQuantity(s, 1, -1)
	assert.Empty(t, s.PendingUserCart)
}

func TestTransitions_DoNotMutateInput(t *testing.T) {
	before := ProposeStock(seededState(), 1, 4)
	after := ProposeStock(before, 3, 1)
	after = ApplyStock(after, 1, 4)

	assert.Equal(t, map[uint]int{1: 4}, before.PendingStocks)
	assert.Equal(t, 12, before.Books[2].Stocks)
	assert.Equal(t, map[uint]int{3: 1}, after.PendingStocks)
}

func TestStagingInvariant_RandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	ids := []uint{1, 2, 3, 4}

	s := seededState()
	for i := 0; i < 2000; i++ {
		id := ids[rng.Intn(len(ids))]
		v := rng.Intn(30) - 10
		switch rng.Intn(9) {
		case 0:
			s = ProposeStock(s, id, v)
		case 1:
			s = ProposeCartQuantity(s, id, v)
		case 2:
			s = AdjustStock(s, id, v)
		case 3:
			s = AdjustCartQuantity(s, id, v)
		case 4:
			s = ApplyStock(s, id, rng.Intn(15))
		case 5:
			s = ApplyCartQuantity(s, id, rng.Intn(4))
		case 6:
			s = ConfirmStocksLocally(s)
		case 7:
			s = RemoveCartLines(s, map[uint]bool{id: true})
		case 8:
			if rng.Intn(10) == 0 {
				s = DiscardCart(DiscardStocks(s))
			}
		}
		assertStagingInvariant(t, s)
	}
}

func TestConfirmLocally(t *testing.T) {
	s := seededState()
	s = ProposeStock(s, 3, 9)
	s = ProposeCartQuantity(s, 3, 2)
	s = ProposeCartQuantity(s, 1, 0)

	s = ConfirmStocksLocally(s)
	assert.Empty(t, s.PendingStocks)
	assert.Equal(t, 9, s.DisplayedStock(3))

	s = ConfirmCartLocally(s)
	assert.Empty(t, s.PendingUserCart)
	require.Len(t, s.Cart, 1)
	assert.Equal(t, uint(3), s.Cart[0].BookID)
	assert.Equal(t, 2, s.Cart[0].Quantity)
	assert.Equal(t, uint(7), s.Cart[0].UserID)
}

func TestConfirmCartLocally_EmptyIsNoop(t *testing.T) {
	s := seededState()
	out := ConfirmCartLocally(s)
	assert.Equal(t, s.Cart, out.Cart)
	assert.Empty(t, out.PendingUserCart)
}

func TestSetView_ClearsStaging(t *testing.T) {
	s := seededState()
	s = ProposeStock(s, 1, 3)
	s = ProposeCartQuantity(s, 3, 1)
	s = BeginEdit(s, 1)

	s = SetView(s, ViewCart)
	assert.Equal(t, ViewCart, s.View)
	assert.Empty(t, s.PendingStocks)
	assert.Empty(t, s.PendingUserCart)
	assert.Zero(t, s.EditingBookID)
}

func TestDeleteBook_DropsReferences(t *testing.T) {
	s := seededState()
	s = ProposeStock(s, 3, 1)
	s = ProposeCartQuantity(s, 3, 1)
	s = BeginEdit(s, 3)

	s = DeleteBook(s, 3)
	_, ok := s.Book(3)
	assert.False(t, ok)
	assert.Empty(t, s.PendingStocks)
	assert.Empty(t, s.PendingUserCart)
	assert.Zero(t, s.EditingBookID)
}

func TestAddBook_PrependsNewest(t *testing.T) {
	s := AddBook(seededState(), models.Book{ID: 4, Title: "Ulysses"})
	assert.Equal(t, uint(4), s.Books[0].ID)
	assert.Len(t, s.Books, 4)
}

func TestCartTotals(t *testing.T) {
	s := seededState()
	s = ApplyCartQuantity(s, 3, 3)

	assert.Equal(t, 5, s.CartCount())
	assert.Equal(t, "44.50", s.CartTotal().StringFixed(2))
}

func TestFilteredBooks_CaseInsensitiveTitle(t *testing.T) {
	s := SetSearchQuery(seededState(), "  DR ")
	books := FilteredBooks(s)
	require.Len(t, books, 1)
	assert.Equal(t, "Dracula", books[0].Title)

	assert.Len(t, FilteredBooks(SetSearchQuery(s, "")), 3)
}

func TestSignInAndOut(t *testing.T) {
	s := NewState()
	s = ProposeStock(s, 1, 1)

	admin := models.User{ID: 1, Email: "admin@webook.com", Role: models.RoleAdmin}
	s = SignIn(s, admin, nil)
	assert.Equal(t, ViewAdmin, s.View)
	assert.True(t, s.IsAdmin())

	s = SignOut(s)
	assert.Nil(t, s.User)
	assert.Empty(t, s.Cart)
	assert.Equal(t, ViewHome, s.View)

	s = SignIn(s, models.User{ID: 2, Role: models.RoleUser}, []models.CartLine{{BookID: 1, Quantity: 1}})
	assert.Equal(t, ViewHome, s.View)
	assert.Equal(t, 1, s.CartCount())
}

func TestHydrate_DropsStaleStaging(t *testing.T) {
	s := seededState()
	s = ProposeStock(s, 3, 8)
	s = ProposeStock(s, 1, 2)

	books := []models.Book{{ID: 3, Title: "Dune", Stocks: 8}}
	s = Hydrate(s, books, nil, nil)

	assert.Empty(t, s.PendingStocks)
	assert.Len(t, s.Books, 1)
}

func TestUserTransitions(t *testing.T) {
	s := SetUsers(NewState(), []models.User{{ID: 1, Role: models.RoleUser}, {ID: 2, Role: models.RoleAdmin}})

	s = UpdateUserRole(s, 1, models.RoleAdmin)
	assert.Equal(t, models.RoleAdmin, s.Users[0].Role)

	s = DeleteUser(s, 2)
	require.Len(t, s.Users, 1)
	assert.Equal(t, uint(1), s.Users[0].ID)
}

func TestCartLineKeepsMetadataAfterBookUpdate(t *testing.T) {
	s := seededState()
	s = ProposeCartQuantity(s, 3, 1)
	s = ConfirmCartLocally(s)
	require.Len(t, s.Cart, 2)
	before := s.CartTotal()
	require.Equal(t, "24.50", before.StringFixed(2))

	s = UpdateBook(s, 3, models.BookRequest{Title: "Dune Messiah", Author: "Herbert", Price: decimal.RequireFromString("99.00"), Stocks: 5})
	s = UpdateBook(s, 1, models.BookRequest{Title: "Carmilla", Author: "Le Fanu", Price: decimal.RequireFromString("1.00"), Stocks: 12})

	book, _ := s.Book(3)
	assert.Equal(t, "Dune Messiah", book.Title)
	assert.True(t, before.Equal(s.CartTotal()))
	titles := map[uint]string{}
	for _, l := range s.Cart {
		titles[l.BookID] = l.Title
	}
	assert.Equal(t, map[uint]string{1: "Dracula", 3: "Dune"}, titles)
}

func TestSettleLines(t *testing.T) {
	s := seededState()
	s = SettleLines(s, nil, map[uint]int{1: 2})
	assert.Equal(t, map[uint]int{1: 2}, s.Decremented)

	reloaded := Hydrate(s, s.Books, s.Cart, nil)
	assert.Equal(t, map[uint]int{1: 2}, reloaded.Decremented)
	assert.Empty(t, Hydrate(s, s.Books, []models.CartLine{}, nil).Decremented)

	settled := SettleLines(s, map[uint]bool{1: true}, nil)
	assert.Empty(t, settled.Decremented)
	assert.Equal(t, map[uint]int{1: 2}, s.Decremented)

	assert.Nil(t, SignOut(s).Decremented)
}
