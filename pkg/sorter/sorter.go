package sorter

import "acctview/pkg/models"

// Result is the sorted account list and the parallel address list used to
// key batch queries.
type Result struct {
	Accounts  []models.SortedAccount
	Addresses []string
}

// Sort places favorites first and everything else after, keeping the
// source order inside each group.
func Sort(accounts []models.Account, favorites models.AddressSet) Result {
	res := Result{
		Accounts:  make([]models.SortedAccount, 0, len(accounts)),
		Addresses: make([]string, 0, len(accounts)),
	}
	var rest []models.SortedAccount
	for _, acc := range accounts {
		if favorites.Has(acc.Address) {
			res.Accounts = append(res.Accounts, models.SortedAccount{Account: acc, IsFavorite: true})
		} else {
			rest = append(rest, models.SortedAccount{Account: acc})
		}
	}
	res.Accounts = append(res.Accounts, rest...)
	for _, a := range res.Accounts {
		res.Addresses = append(res.Addresses, a.Account.Address)
	}
	return res
}
