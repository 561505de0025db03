package sqlinline

const QInsertLedgerEntry = `--sql 40264556-c693-4468-81d8-b50ea8c19809
insert into ledger_entries(
  id,
  user_id,
  type,
  amount,
  status,
  product_id,
  external_offer_id,
  description,
  created_at
) values (
  gen_random_uuid(),
  $1::text,
  $2::text,
  $3::bigint,
  $4::text,
  nullif($5::text, ''),
  nullif($6::text, ''),
  $7::text,
  now()
) returning id, created_at;
`

const QCompletedChargeExists = `--sql 607e1e33-37dd-498f-a3a5-ed14253a8bc8
select exists(
  select 1
  from ledger_entries
  where user_id = $1::text
    and product_id = $2::text
    and type = $3::text
    and status = 'completed'
);
`

const QListLedgerEntries = `--sql be72ac89-f31d-490a-9156-740914154b37
select
  id,
  user_id,
  type,
  amount,
  status,
  coalesce(product_id, ''),
  coalesce(external_offer_id, ''),
  description,
  created_at
from ledger_entries
where user_id = $1::text
order by created_at desc
limit $2::int;
`
